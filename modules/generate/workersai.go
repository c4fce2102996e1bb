package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"flux-image-gateway/modules/common/model"
	"flux-image-gateway/modules/common/utils"
	"flux-image-gateway/modules/common/workersai"
)

// workersAIRunner - workersai.Client 중 사용하는 메서드
type workersAIRunner interface {
	Run(ctx context.Context, modelName string, input any, opts workersai.RunOptions) (json.RawMessage, error)
	RunMultipart(ctx context.Context, modelName string, body io.Reader, contentType string, opts workersai.RunOptions) (json.RawMessage, error)
}

// WorkersAIEnhancer - Workers AI 텍스트 모델 (llama) 로 프롬프트 개선
type WorkersAIEnhancer struct {
	client    workersAIRunner
	model     string
	gatewayID string
}

func NewWorkersAIEnhancer(client workersAIRunner, modelName, gatewayID string) *WorkersAIEnhancer {
	return &WorkersAIEnhancer{client: client, model: modelName, gatewayID: gatewayID}
}

type chatInput struct {
	Messages []model.ChatMessage `json:"messages"`
}

// Enhance - {"response": "..."} 형태만 성공으로 인정
func (e *WorkersAIEnhancer) Enhance(ctx context.Context, messages []model.ChatMessage) (*model.EnhanceResult, error) {
	raw, err := e.client.Run(ctx, e.model, chatInput{Messages: messages}, workersai.RunOptions{GatewayID: e.gatewayID})
	if err != nil {
		return nil, err
	}
	log.Printf("🦙 [LLAMA] Raw response: %s", utils.Preview(string(raw), 500))

	var out struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("malformed enhancement response: %w", err)
	}
	if out.Response == nil {
		return nil, fmt.Errorf("malformed enhancement response: missing response field")
	}
	return &model.EnhanceResult{Text: *out.Response}, nil
}

// WorkersAIImageGenerator - Workers AI FLUX 모델로 이미지 생성
type WorkersAIImageGenerator struct {
	client workersAIRunner
	model  string
}

func NewWorkersAIImageGenerator(client workersAIRunner, modelName string) *WorkersAIImageGenerator {
	return &WorkersAIImageGenerator{client: client, model: modelName}
}

// Generate - multipart body 전송, {"image": "<base64>"} 응답 검증
func (g *WorkersAIImageGenerator) Generate(ctx context.Context, payload *model.MultipartPayload) (*model.ImageResult, error) {
	raw, err := g.client.RunMultipart(ctx, g.model, bytes.NewReader(payload.Body), payload.ContentType, workersai.RunOptions{})
	if err != nil {
		return nil, err
	}

	var result model.ImageResult
	if err := json.Unmarshal(raw, &result); err != nil || result.Image == "" {
		log.Printf("❌ [FLUX] OUTPUT - Unexpected response format: %s", utils.Preview(string(raw), 300))
		return nil, ErrInvalidFluxResponse
	}
	return &result, nil
}
