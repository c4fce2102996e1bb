package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"flux-image-gateway/modules/common/model"
)

// Enhancer - Gemini 기반 프롬프트 개선기 (ENHANCE_PROVIDER=gemini)
type Enhancer struct {
	client    *genai.Client
	modelName string
}

// NewEnhancer - Gemini 클라이언트 생성
func NewEnhancer(ctx context.Context, apiKey, modelName string) (*Enhancer, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log.Printf("✅ [Gemini] Enhancer initialized (model: %s)", modelName)
	return &Enhancer{
		client:    client,
		modelName: modelName,
	}, nil
}

// Close - Gemini 클라이언트 종료
func (e *Enhancer) Close() error {
	return e.client.Close()
}

// Enhance - system 메시지는 SystemInstruction 으로, user 메시지는 본문으로 전달
func (e *Enhancer) Enhance(ctx context.Context, messages []model.ChatMessage) (*model.EnhanceResult, error) {
	system, user := splitMessages(messages)
	if len(user) == 0 {
		return nil, errors.New("no user message to enhance")
	}

	gm := e.client.GenerativeModel(e.modelName)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	parts := make([]genai.Part, 0, len(user))
	for _, text := range user {
		parts = append(parts, genai.Text(text))
	}

	resp, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, err
	}
	return &model.EnhanceResult{Text: text}, nil
}

// splitMessages - system 내용은 합치고 user 내용은 순서대로 유지
func splitMessages(messages []model.ChatMessage) (string, []string) {
	var system []string
	var user []string
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			system = append(system, m.Content)
		default:
			user = append(user, m.Content)
		}
	}
	return strings.Join(system, "\n"), user
}

// extractText - 첫 번째 후보의 텍스트 파트를 이어 붙임
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no content generated")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("empty candidate (finish reason: %v)", candidate.FinishReason)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("unexpected content type in response")
	}
	return sb.String(), nil
}
