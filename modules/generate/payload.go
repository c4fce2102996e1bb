package generate

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"flux-image-gateway/modules/common/model"
	"flux-image-gateway/modules/common/utils"
)

// FLUX 고정 생성 파라미터
const (
	FluxWidth  = "1024"
	FluxHeight = "1024"
	FluxSteps  = "25"
)

// payloadImage - 버퍼링이 끝난 참조 이미지
type payloadImage struct {
	Name string
	Blob *utils.Blob
}

// buildFluxPayload - prompt, 고정 파라미터, input_image_{i} 순서로 multipart body 작성
// 이미지가 없어도 항상 multipart 로 보냄
func buildFluxPayload(prompt string, images []payloadImage) (*model.MultipartPayload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"prompt", prompt},
		{"width", FluxWidth},
		{"height", FluxHeight},
		{"steps", FluxSteps},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	for i, img := range images {
		fieldName := fmt.Sprintf("input_image_%d", i)
		part, err := mw.CreatePart(imagePartHeader(fieldName, img))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", fieldName, err)
		}
		if _, err := part.Write(img.Blob.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", fieldName, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &model.MultipartPayload{
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func imagePartHeader(fieldName string, img payloadImage) textproto.MIMEHeader {
	fileName := img.Name
	if fileName == "" {
		fileName = "blob"
	}
	contentType := img.Blob.ContentType
	if contentType == "" {
		contentType = utils.DefaultImageType
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(fieldName), quoteEscaper.Replace(fileName)))
	h.Set("Content-Type", contentType)
	return h
}

// describePayload - 로그용 필드 요약 (이미지는 크기/타입만)
func describePayload(prompt string, images []payloadImage) map[string]string {
	out := map[string]string{
		"prompt": prompt,
		"width":  FluxWidth,
		"height": FluxHeight,
		"steps":  FluxSteps,
	}
	for i, img := range images {
		out[fmt.Sprintf("input_image_%d", i)] = fmt.Sprintf("Blob(%d bytes, %s)", img.Blob.Size(), img.Blob.ContentType)
	}
	return out
}
