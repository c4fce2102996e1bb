package workersai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"flux-image-gateway/modules/common/utils"
)

const (
	DefaultAPIBaseURL     = "https://api.cloudflare.com/client/v4"
	DefaultGatewayBaseURL = "https://gateway.ai.cloudflare.com/v1"
)

// Client - Cloudflare Workers AI REST 클라이언트
type Client struct {
	accountID      string
	apiToken       string
	apiBaseURL     string
	gatewayBaseURL string
	httpClient     *http.Client
}

// Option - 클라이언트 설정 옵션
type Option func(*Client)

// WithAPIBaseURL - REST API 베이스 URL 변경 (테스트용)
func WithAPIBaseURL(baseURL string) Option {
	return func(c *Client) { c.apiBaseURL = strings.TrimRight(baseURL, "/") }
}

// WithGatewayBaseURL - AI Gateway 베이스 URL 변경 (테스트용)
func WithGatewayBaseURL(baseURL string) Option {
	return func(c *Client) { c.gatewayBaseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient - 커스텀 HTTP 클라이언트
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient - Workers AI 클라이언트 생성
func NewClient(accountID, apiToken string, opts ...Option) *Client {
	c := &Client{
		accountID:      accountID,
		apiToken:       apiToken,
		apiBaseURL:     DefaultAPIBaseURL,
		gatewayBaseURL: DefaultGatewayBaseURL,
		// 타임아웃은 요청 context 에 맡김
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunOptions - 모델 호출 옵션
type RunOptions struct {
	// GatewayID 가 있으면 AI Gateway 를 경유 (라우팅/관측용 태그)
	GatewayID string
}

// ResponseError - Workers AI 에러 항목
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIError - Workers AI 호출 실패
// Error() 문자열에 provider 에러 코드(3040, 3030 등)가 그대로 포함됨
type APIError struct {
	StatusCode int
	Errors     []ResponseError
	Body       string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		parts := make([]string, 0, len(e.Errors))
		for _, item := range e.Errors {
			parts = append(parts, fmt.Sprintf("AiError: %d: %s", item.Code, item.Message))
		}
		return strings.Join(parts, "; ")
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return fmt.Sprintf("workers ai rate limit exceeded (%d)", e.StatusCode)
	}
	return fmt.Sprintf("workers ai request failed (%d): %s", e.StatusCode, utils.Preview(e.Body, 200))
}

type envelope struct {
	Result  json.RawMessage `json:"result"`
	Success *bool           `json:"success"`
	Errors  []ResponseError `json:"errors"`
}

// Run - JSON 입력으로 모델 실행, result 필드 원문 반환
func (c *Client) Run(ctx context.Context, model string, input any, opts RunOptions) (json.RawMessage, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}
	return c.do(ctx, c.runURL(model, opts.GatewayID), bytes.NewReader(body), "application/json")
}

// RunMultipart - multipart 입력으로 모델 실행 (contentType 에 boundary 포함)
func (c *Client) RunMultipart(ctx context.Context, model string, body io.Reader, contentType string, opts RunOptions) (json.RawMessage, error) {
	return c.do(ctx, c.runURL(model, opts.GatewayID), body, contentType)
}

// runURL - gateway 사용 여부에 따라 호출 URL 생성
func (c *Client) runURL(model, gatewayID string) string {
	if gatewayID != "" {
		return fmt.Sprintf("%s/%s/%s/workers-ai/%s", c.gatewayBaseURL, c.accountID, gatewayID, model)
	}
	return fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.apiBaseURL, c.accountID, model)
}

func (c *Client) do(ctx context.Context, url string, body io.Reader, contentType string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workers ai request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	log.Printf("📡 [WorkersAI] %s -> %d (%d bytes, %v)", url, resp.StatusCode, len(data), time.Since(started).Round(time.Millisecond))

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		if decodeErr == nil {
			apiErr.Errors = env.Errors
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to parse response: %w", decodeErr)
	}
	if len(env.Errors) > 0 || (env.Success != nil && !*env.Success) {
		return nil, &APIError{StatusCode: resp.StatusCode, Errors: env.Errors, Body: string(data)}
	}
	// gateway 가 envelope 없이 결과만 돌려주는 경우
	if len(env.Result) == 0 {
		return json.RawMessage(data), nil
	}
	return env.Result, nil
}
