package model

import "time"

// ChatMessage - 텍스트 모델에 보내는 메시지 (system / user)
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// EnhanceResult - 프롬프트 개선 결과
type EnhanceResult struct {
	Text string
}

// MultipartPayload - 이미지 모델에 보내는 multipart body
type MultipartPayload struct {
	Body        []byte
	ContentType string // boundary 포함
}

// ImageResult - 이미지 모델 응답 ({"image": "<base64>"})
type ImageResult struct {
	Image string `json:"image"`
}

// GenerationEvent - 요청 1건의 처리 기록 (history sink 로 전달, 다시 읽지 않음)
type GenerationEvent struct {
	EventID      string    `json:"event_id"`
	Status       string    `json:"status"`
	Code         string    `json:"code,omitempty"`
	PromptLength int       `json:"prompt_length"`
	FinalPrompt  string    `json:"final_prompt,omitempty"`
	Enhanced     bool      `json:"enhanced"`
	ImageCount   int       `json:"image_count"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)
