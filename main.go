package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"flux-image-gateway/modules/common/config"
	"flux-image-gateway/modules/common/database"
	"flux-image-gateway/modules/common/gemini"
	"flux-image-gateway/modules/common/history"
	"flux-image-gateway/modules/common/redis"
	"flux-image-gateway/modules/common/workersai"
	"flux-image-gateway/modules/generate"
)

const (
	// 이미지 생성 호출 포함 upstream 요청 1건의 최대 시간
	upstreamTimeout = 2 * time.Minute
	shutdownTimeout = 30 * time.Second
)

// CORS 헤더 추가 (404 포함 모든 응답)
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// preflight - 경로와 관계없이 빈 body 200
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 등록되지 않은 경로/메서드
func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Not Found"))
}

// newRouter - POST /generate 외에는 전부 404
func newRouter(handler *generate.Handler) http.Handler {
	r := mux.NewRouter()
	// 경로 정리(301 redirect) 없이 그대로 매칭
	r.SkipClean(true)
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)

	handler.RegisterRoutes(r)

	return enableCORS(r)
}

// newEnhancer - ENHANCE_PROVIDER 에 따라 프롬프트 개선 모델 선택
func newEnhancer(ctx context.Context, cfg *config.Config, client *workersai.Client) (generate.TextEnhancer, func(), error) {
	if cfg.EnhanceProvider == config.EnhanceProviderGemini {
		enhancer, err := gemini.NewEnhancer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return enhancer, func() { enhancer.Close() }, nil
	}
	return generate.NewWorkersAIEnhancer(client, cfg.EnhanceModel, cfg.AIGatewayID), func() {}, nil
}

// newHistory - 설정된 저장소만 연결, 연결 실패 시 해당 저장소 없이 진행
func newHistory(cfg *config.Config) history.Recorder {
	var recorders []history.Recorder

	if cfg.RedisEnabled() {
		if rdb := redis.Connect(cfg); rdb != nil {
			log.Printf("✅ Redis connected, history stream: %s", cfg.HistoryStream)
			recorders = append(recorders, redis.NewStreamRecorder(rdb, cfg.HistoryStream))
		} else {
			log.Printf("⚠️  Redis unavailable, history stream disabled")
		}
	}

	if cfg.SupabaseEnabled() {
		client, err := database.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.HistoryTable)
		if err != nil {
			log.Printf("⚠️  Supabase unavailable, history table disabled: %v", err)
		} else {
			log.Printf("✅ Supabase connected, history table: %s", cfg.HistoryTable)
			recorders = append(recorders, client)
		}
	}

	if len(recorders) == 0 {
		log.Printf("ℹ️  Generation history disabled")
		return history.Nop{}
	}
	fanout := history.NewFanout(recorders...)
	log.Printf("📚 Generation history sinks: %d", fanout.Len())
	return fanout
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Workers AI 클라이언트
	client := workersai.NewClient(cfg.CloudflareAccountID, cfg.CloudflareAPIToken,
		workersai.WithAPIBaseURL(cfg.CloudflareAPIBaseURL),
		workersai.WithGatewayBaseURL(cfg.CloudflareGatewayBaseURL),
		workersai.WithHTTPClient(&http.Client{Timeout: upstreamTimeout}),
	)

	enhancer, closeEnhancer, err := newEnhancer(ctx, cfg, client)
	if err != nil {
		log.Fatalf("❌ Failed to create enhancer: %v", err)
	}
	defer closeEnhancer()

	generator := generate.NewWorkersAIImageGenerator(client, cfg.FluxModel)

	service, err := generate.NewService(enhancer, generator)
	if err != nil {
		log.Fatalf("❌ Failed to create generate service: %v", err)
	}

	handler := generate.NewHandler(service, newHistory(cfg), cfg.MaxUploadBytes())

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(handler),
	}

	go func() {
		log.Printf("🚀 FLUX Image Gateway starting on port %s", cfg.Port)
		log.Printf("🎨 Generate endpoint: http://localhost:%s/generate", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 종료 신호 대기
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown error: %v", err)
	}

	// 응답 이후 남은 history 기록 마무리
	handler.Wait()
	log.Printf("✅ Server stopped")
}
