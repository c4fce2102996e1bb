package utils

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

// DefaultImageType - content-type 이 없는 이미지의 기본값
const DefaultImageType = "image/png"

const drainChunkSize = 32 * 1024

// Blob - 메모리에 완전히 버퍼링된 이미지 데이터
type Blob struct {
	Data        []byte
	ContentType string
}

// Size - blob 크기 (bytes)
func (b *Blob) Size() int {
	return len(b.Data)
}

// DrainToBlob - 스트림을 끝까지 읽어 하나의 blob 으로 만듦
// 청크는 도착 순서대로 이어 붙임
func DrainToBlob(r io.Reader, contentType string) (*Blob, error) {
	if contentType == "" {
		contentType = DefaultImageType
	}

	var buf bytes.Buffer
	chunk := make([]byte, drainChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to drain image stream: %w", err)
		}
	}

	return &Blob{
		Data:        buf.Bytes(),
		ContentType: contentType,
	}, nil
}

// Preview - 긴 문자열(base64 등)의 로그용 미리보기
// maxLen 은 byte 기준, 멀티바이트 문자 중간에서는 자르지 않음
func Preview(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 0 {
		maxLen = 0
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
