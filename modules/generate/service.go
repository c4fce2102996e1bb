package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"flux-image-gateway/modules/common/model"
	"flux-image-gateway/modules/common/utils"
)

// TextEnhancer - 프롬프트 개선 모델 (실패해도 요청은 계속 진행)
type TextEnhancer interface {
	Enhance(ctx context.Context, messages []model.ChatMessage) (*model.EnhanceResult, error)
}

// ImageGenerator - 이미지 생성 모델
type ImageGenerator interface {
	Generate(ctx context.Context, payload *model.MultipartPayload) (*model.ImageResult, error)
}

type Service struct {
	enhancer  TextEnhancer
	generator ImageGenerator
	now       func() time.Time
}

// NewService - 두 모델은 외부에서 주입
func NewService(enhancer TextEnhancer, generator ImageGenerator) (*Service, error) {
	if enhancer == nil {
		return nil, errors.New("enhancer is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	return &Service{
		enhancer:  enhancer,
		generator: generator,
		now:       time.Now,
	}, nil
}

// Generate - 검증 → (개선) → sanitize → multipart 작성 → 이미지 생성
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) *Outcome {
	log.Printf("📝 [INPUT] Prompt length: %d", len(req.Prompt))
	log.Printf("📝 [INPUT] Enhance enabled: %v", req.Enhance)
	log.Printf("📝 [INPUT] Images provided: %d", len(req.Images))

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		log.Printf("❌ [ERROR] No prompt provided")
		out := s.failure(http.StatusBadRequest, CodePromptRequired, promptRequiredMessage)
		out.ImageCount = len(req.Images)
		return out
	}

	finalPrompt := prompt
	enhancedPrompt := ""

	// 이미지가 없을 때만 개선
	if req.Enhance && len(req.Images) == 0 {
		finalPrompt, enhancedPrompt = s.enhancePrompt(ctx, prompt)
	} else if len(req.Images) > 0 {
		log.Printf("⏭️  [SKIP] Prompt enhancement skipped (images provided)")
	} else {
		log.Printf("⏭️  [SKIP] Prompt enhancement disabled by user")
	}

	log.Printf("🧹 [SANITIZE] Pre-sanitization prompt: %s", finalPrompt)
	if sanitized := SanitizePrompt(finalPrompt); sanitized != finalPrompt {
		log.Printf("🧹 [SANITIZE] Sanitized prompt: %s", sanitized)
		finalPrompt = sanitized
	}

	out, err := s.generate(ctx, finalPrompt, req.Images)
	if err != nil {
		log.Printf("❌ [ERROR] Request processing failed: %v", err)
		out = s.serverError(err)
	}
	out.FinalPrompt = finalPrompt
	out.PromptLength = len(req.Prompt)
	out.ImageCount = len(req.Images)
	if out.Success {
		out.EnhancedPrompt = enhancedPrompt
	}
	return out
}

// enhancePrompt - 개선 결과가 비어 있거나 같으면 원본 유지, 실패는 삼킴
func (s *Service) enhancePrompt(ctx context.Context, prompt string) (finalPrompt, enhancedPrompt string) {
	finalPrompt = prompt

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ [LLAMA] Enhancement panicked: %v", rec)
			log.Printf("🦙 [LLAMA] Continuing with original prompt")
			finalPrompt, enhancedPrompt = prompt, ""
		}
	}()

	log.Printf("🦙 [LLAMA] Starting prompt enhancement")
	log.Printf("🦙 [LLAMA] Original prompt: %s", prompt)

	result, err := s.enhancer.Enhance(ctx, buildEnhanceMessages(prompt))
	if err != nil {
		log.Printf("❌ [LLAMA] Enhancement failed: %v", err)
		log.Printf("🦙 [LLAMA] Continuing with original prompt")
		return prompt, ""
	}

	enhanced := ""
	if result != nil {
		enhanced = strings.TrimSpace(result.Text)
	}
	if enhanced == "" || enhanced == prompt {
		log.Printf("🦙 [LLAMA] No enhancement applied, using original")
		return prompt, ""
	}

	log.Printf("✅ [LLAMA] Enhanced prompt: %s", enhanced)
	return enhanced, enhanced
}

// generate - 반환 error 는 SERVER_ERROR, 이미지 생성 실패는 Outcome 으로 분류
func (s *Service) generate(ctx context.Context, prompt string, inputs []InputImage) (*Outcome, error) {
	log.Printf("🖼️  [FLUX] Preparing multipart form data")

	images, err := drainImages(inputs)
	if err != nil {
		return nil, err
	}

	payload, err := buildFluxPayload(prompt, images)
	if err != nil {
		return nil, err
	}

	if desc, err := json.MarshalIndent(describePayload(prompt, images), "", "  "); err == nil {
		log.Printf("🖼️  [FLUX] FormData contents: %s", desc)
	}
	log.Printf("🖼️  [FLUX] Content-Type header: %s", payload.ContentType)
	log.Printf("🚀 [FLUX] Calling image model (%d bytes)", len(payload.Body))

	result, err := s.generator.Generate(ctx, payload)
	if err == nil && (result == nil || result.Image == "") {
		err = ErrInvalidFluxResponse
	}
	if err != nil {
		log.Printf("❌ [FLUX] Generation failed: %v", err)
		code, message := ClassifyGenerationError(err)
		return s.failure(http.StatusInternalServerError, code, message), nil
	}

	log.Printf("✅ [FLUX] Generation successful - image length: %d (preview: %s)",
		len(result.Image), utils.Preview(result.Image, 100))

	return &Outcome{
		Status:    http.StatusOK,
		Success:   true,
		Image:     result.Image,
		Timestamp: s.now(),
	}, nil
}

// drainImages - 슬롯 순서대로 이미지 하나씩 끝까지 읽음
func drainImages(inputs []InputImage) ([]payloadImage, error) {
	images := make([]payloadImage, 0, len(inputs))
	for i, in := range inputs {
		log.Printf("🖼️  [FLUX] Processing image %d: %s, %d bytes, %s", i, in.Name, in.Size, in.ContentType)

		blob, err := drainImage(in)
		if err != nil {
			return nil, err
		}
		images = append(images, payloadImage{Name: in.Name, Blob: blob})
		log.Printf("🖼️  [FLUX] Added input_image_%d to form", i)
	}
	return images, nil
}

func drainImage(in InputImage) (*utils.Blob, error) {
	if in.Open == nil {
		return nil, fmt.Errorf("image_%d has no content", in.Slot)
	}
	rc, err := in.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open image_%d: %w", in.Slot, err)
	}
	defer rc.Close()

	return utils.DrainToBlob(rc, in.ContentType)
}

func (s *Service) failure(status int, code, message string) *Outcome {
	return &Outcome{
		Status:    status,
		Code:      code,
		Message:   message,
		Timestamp: s.now(),
	}
}

// serverError - 생성 단계 밖의 실패
func (s *Service) serverError(err error) *Outcome {
	message := defaultServerMessage
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return s.failure(http.StatusInternalServerError, CodeServerError, message)
}

// ServerError - handler 에서 서비스 진입 전 실패를 같은 형태로 변환
func (s *Service) ServerError(err error) *Outcome {
	return s.serverError(err)
}
