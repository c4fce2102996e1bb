package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	EnhanceProviderWorkersAI = "workers-ai"
	EnhanceProviderGemini    = "gemini"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Server
	Port        string
	MaxUploadMB int

	// Cloudflare Workers AI
	CloudflareAccountID      string
	CloudflareAPIToken       string
	CloudflareAPIBaseURL     string
	CloudflareGatewayBaseURL string
	AIGatewayID              string

	// Models
	EnhanceProvider string
	EnhanceModel    string
	FluxModel       string

	// Gemini API (ENHANCE_PROVIDER=gemini 일 때만 사용)
	GeminiAPIKey string
	GeminiModel  string

	// Redis (history stream, 선택)
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool
	HistoryStream string

	// Supabase (history table, 선택)
	SupabaseURL        string
	SupabaseServiceKey string
	HistoryTable       string
}

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	// Redis UseTLS 파싱
	useTLS := false // 기본값
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	// MaxUploadMB 파싱
	maxUploadMB := 32
	if sizeStr := os.Getenv("MAX_UPLOAD_MB"); sizeStr != "" {
		if parsed, err := strconv.Atoi(sizeStr); err == nil && parsed > 0 {
			maxUploadMB = parsed
		}
	}

	cfg := &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		MaxUploadMB: maxUploadMB,

		// Cloudflare
		CloudflareAccountID:      getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		CloudflareAPIToken:       getEnv("CLOUDFLARE_API_TOKEN", ""),
		CloudflareAPIBaseURL:     getEnv("CLOUDFLARE_API_BASE_URL", "https://api.cloudflare.com/client/v4"),
		CloudflareGatewayBaseURL: getEnv("CLOUDFLARE_GATEWAY_BASE_URL", "https://gateway.ai.cloudflare.com/v1"),
		// 빈 문자열이면 gateway 없이 직접 호출
		AIGatewayID: lookupEnv("AI_GATEWAY_ID", "ai-gateway-image-generator"),

		// Models
		EnhanceProvider: getEnv("ENHANCE_PROVIDER", EnhanceProviderWorkersAI),
		EnhanceModel:    getEnv("ENHANCE_MODEL", "@cf/meta/llama-3.2-3b-instruct"),
		FluxModel:       getEnv("FLUX_MODEL", "@cf/black-forest-labs/flux-2-dev"),

		// Gemini
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,
		HistoryStream: getEnv("HISTORY_STREAM", "generation:history"),

		// Supabase
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		HistoryTable:       getEnv("HISTORY_TABLE", "image_generation_history"),
	}

	// 필수 환경변수 검증
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Workers AI: account=%s, gateway=%q", cfg.CloudflareAccountID, cfg.AIGatewayID)
	log.Printf("   Enhance: %s (%s)", cfg.EnhanceProvider, cfg.activeEnhanceModel())
	log.Printf("   Flux: %s", cfg.FluxModel)
	log.Printf("   History: redis=%v, supabase=%v", cfg.RedisEnabled(), cfg.SupabaseEnabled())

	return cfg, nil
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.CloudflareAccountID == "" {
		return fmt.Errorf("CLOUDFLARE_ACCOUNT_ID is required")
	}
	if c.CloudflareAPIToken == "" {
		return fmt.Errorf("CLOUDFLARE_API_TOKEN is required")
	}
	switch c.EnhanceProvider {
	case EnhanceProviderWorkersAI:
	case EnhanceProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when ENHANCE_PROVIDER=%s", EnhanceProviderGemini)
		}
	default:
		return fmt.Errorf("unsupported ENHANCE_PROVIDER: %q", c.EnhanceProvider)
	}
	if c.SupabaseURL != "" && c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required when SUPABASE_URL is set")
	}
	return nil
}

func (c *Config) activeEnhanceModel() string {
	if c.EnhanceProvider == EnhanceProviderGemini {
		return c.GeminiModel
	}
	return c.EnhanceModel
}

// MaxUploadBytes - 요청 body 전체 상한
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// RedisEnabled - REDIS_HOST 가 있을 때만 history stream 사용
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// SupabaseEnabled - SUPABASE_URL 이 있을 때만 history table 사용
func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != ""
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv - 명시적으로 빈 값이 설정된 경우도 존중
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
