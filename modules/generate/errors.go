package generate

import (
	"errors"
	"strings"
)

const (
	CodeCapacityExceeded  = "CAPACITY_EXCEEDED"
	CodeContentModeration = "CONTENT_MODERATION"
	CodeRateLimit         = "RATE_LIMIT"
	CodeUnknown           = "UNKNOWN_ERROR"
	CodeServerError       = "SERVER_ERROR"
	// history 기록용 (400 응답 body 에는 포함되지 않음)
	CodePromptRequired = "PROMPT_REQUIRED"
)

const (
	defaultGenerationMessage = "Image generation failed"
	defaultServerMessage     = "Internal server error"
	promptRequiredMessage    = "Prompt required"
)

// ErrInvalidFluxResponse - image 필드가 없는 응답
var ErrInvalidFluxResponse = errors.New("Invalid response from FLUX model")

type classificationRule struct {
	contains string
	code     string
	message  string
}

// 위에서부터 검사, 처음 매칭되는 규칙 사용
var generationErrorRules = []classificationRule{
	{"3040", CodeCapacityExceeded, "Capacity temporarily exceeded. Please try again in a moment."},
	{"3030", CodeContentModeration, "Prompt flagged for potential copyright or public persona concerns. Please modify your prompt."},
	{"rate limit", CodeRateLimit, "Rate limit exceeded. Please try again later."},
}

// ClassifyGenerationError - 이미지 생성 실패 메시지를 코드/사용자 메시지로 변환
func ClassifyGenerationError(err error) (code, message string) {
	raw := ""
	if err != nil {
		raw = err.Error()
	}

	for _, rule := range generationErrorRules {
		if strings.Contains(raw, rule.contains) {
			return rule.code, rule.message
		}
	}

	if raw == "" {
		return CodeUnknown, defaultGenerationMessage
	}
	return CodeUnknown, raw
}
