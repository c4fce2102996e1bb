package generate

import (
	"io"
	"net/http"
	"time"
)

// MaxInputImages - image_0 ~ image_3 고정 슬롯
const MaxInputImages = 4

// InputImage - 업로드된 참조 이미지 (본문은 payload 작성 시점에 읽음)
type InputImage struct {
	Slot        int
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// GenerateRequest - POST /generate 입력
type GenerateRequest struct {
	Prompt  string
	Enhance bool
	Images  []InputImage
}

// GenerateResponse - 200 응답
type GenerateResponse struct {
	Success        bool   `json:"success"`
	Image          string `json:"image"`
	EnhancedPrompt string `json:"enhancedPrompt,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// ErrorResponse - 500 응답
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

// ValidationErrorResponse - 400 응답 (success/timestamp 없음)
type ValidationErrorResponse struct {
	Error string `json:"error"`
}

// Outcome - 요청 1건의 결과 (성공 또는 실패)
type Outcome struct {
	Status         int
	Success        bool
	Image          string
	EnhancedPrompt string
	FinalPrompt    string
	Code           string
	Message        string
	Timestamp      time.Time

	// history 기록용
	PromptLength int
	ImageCount   int
}

// timestampLayout - ISO-8601, UTC, 밀리초
const timestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp - 응답 timestamp 문자열
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Body - HTTP 응답 body
func (o *Outcome) Body() interface{} {
	switch {
	case o.Success:
		return GenerateResponse{
			Success:        true,
			Image:          o.Image,
			EnhancedPrompt: o.EnhancedPrompt,
			Timestamp:      FormatTimestamp(o.Timestamp),
		}
	case o.Status == http.StatusBadRequest:
		return ValidationErrorResponse{Error: o.Message}
	default:
		return ErrorResponse{
			Success:   false,
			Error:     o.Message,
			Code:      o.Code,
			Timestamp: FormatTimestamp(o.Timestamp),
		}
	}
}
