package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"flux-image-gateway/modules/common/config"
	"flux-image-gateway/modules/common/model"
)

// history stream 최대 길이 (근사치 trim)
const historyMaxLen = 10000

// Connect - Redis 연결 생성
func Connect(cfg *config.Config) *redis.Client {
	log.Printf("🔌 Connecting to Redis: %s", cfg.GetRedisAddr())

	var tlsConfig *tls.Config
	if cfg.RedisUseTLS {
		tlsConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		TLSConfig:    tlsConfig,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	// 연결 테스트
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Printf("🔍 Testing Redis connection...")
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("❌ Redis ping failed: %v", err)
		return nil
	}

	return rdb
}

// StreamRecorder - history 이벤트를 Redis stream 에 XADD
type StreamRecorder struct {
	rdb    *redis.Client
	stream string
}

// NewStreamRecorder - stream recorder 생성
func NewStreamRecorder(rdb *redis.Client, stream string) *StreamRecorder {
	return &StreamRecorder{rdb: rdb, stream: stream}
}

// Name - 로그용 이름
func (r *StreamRecorder) Name() string {
	return "redis:" + r.stream
}

// Record - 이벤트 1건 추가
func (r *StreamRecorder) Record(ctx context.Context, event *model.GenerationEvent) error {
	err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: historyMaxLen,
		Approx: true,
		Values: eventValues(event),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append history event: %w", err)
	}
	return nil
}

// eventValues - stream 필드는 모두 문자열로 저장
func eventValues(event *model.GenerationEvent) map[string]interface{} {
	return map[string]interface{}{
		"event_id":      event.EventID,
		"status":        event.Status,
		"code":          event.Code,
		"prompt_length": strconv.Itoa(event.PromptLength),
		"final_prompt":  event.FinalPrompt,
		"enhanced":      strconv.FormatBool(event.Enhanced),
		"image_count":   strconv.Itoa(event.ImageCount),
		"duration_ms":   strconv.FormatInt(event.DurationMs, 10),
		"created_at":    event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
