package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"flux-image-gateway/modules/common/history"
	"flux-image-gateway/modules/common/model"
)

// multipart 파싱 시 메모리에 올릴 최대 크기 (초과분은 임시 파일)
const formMemoryLimit = 8 << 20

type Handler struct {
	service        *Service
	recorder       history.Recorder
	maxUploadBytes int64

	// 응답 이후 진행 중인 history 기록
	pending sync.WaitGroup
}

// NewHandler - recorder 가 nil 이면 기록하지 않음
func NewHandler(service *Service, recorder history.Recorder, maxUploadBytes int64) *Handler {
	if recorder == nil {
		recorder = history.Nop{}
	}
	return &Handler{
		service:        service,
		recorder:       recorder,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes - POST /generate
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate", h.HandleGenerate).Methods(http.MethodPost)
}

// HandleGenerate - POST /generate
// multipart: prompt, enhance, image_0 ~ image_3
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	eventID := uuid.NewString()
	log.Printf("📥 [GENERATE] Request received (id: %s)", eventID)

	out := h.process(w, r)
	h.writeOutcome(w, out)

	log.Printf("📤 [GENERATE] Response sent (id: %s, status: %d, code: %q, %v)",
		eventID, out.Status, out.Code, time.Since(started).Round(time.Millisecond))

	h.record(r.Context(), eventID, out, time.Since(started))
}

// Wait - 진행 중인 history 기록이 끝날 때까지 대기 (shutdown 시 사용)
func (h *Handler) Wait() {
	h.pending.Wait()
}

// process - 파싱 실패나 panic 도 SERVER_ERROR Outcome 으로 변환
func (h *Handler) process(w http.ResponseWriter, r *http.Request) (out *Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ [ERROR] Request processing panicked: %v", rec)
			out = h.service.ServerError(panicError(rec))
		}
	}()

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	req, err := parseRequest(r)
	if err != nil {
		log.Printf("❌ [ERROR] Request processing failed: %v", err)
		return h.service.ServerError(err)
	}
	defer r.MultipartForm.RemoveAll()

	return h.service.Generate(r.Context(), req)
}

// parseRequest - form 은 한 번만 읽음, 비어 있는 이미지 슬롯은 건너뜀
func parseRequest(r *http.Request) (*GenerateRequest, error) {
	if err := r.ParseMultipartForm(formMemoryLimit); err != nil {
		return nil, fmt.Errorf("failed to parse form data: %w", err)
	}
	form := r.MultipartForm

	req := &GenerateRequest{
		Prompt:  firstValue(form, "prompt"),
		Enhance: firstValue(form, "enhance") == "true",
	}

	for slot := 0; slot < MaxInputImages; slot++ {
		files := form.File[fmt.Sprintf("image_%d", slot)]
		if len(files) == 0 {
			continue
		}
		fh := files[0]
		req.Images = append(req.Images, InputImage{
			Slot:        slot,
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	return req, nil
}

func firstValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func (h *Handler) writeOutcome(w http.ResponseWriter, out *Outcome) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(out.Status)
	if err := json.NewEncoder(w).Encode(out.Body()); err != nil {
		log.Printf("❌ [ERROR] Failed to encode response: %v", err)
	}
}

// record - 응답과 분리된 goroutine 에서 기록, 실패는 응답에 영향 없음
func (h *Handler) record(ctx context.Context, eventID string, out *Outcome, elapsed time.Duration) {
	event := &model.GenerationEvent{
		EventID:      eventID,
		Status:       eventStatus(out),
		PromptLength: out.PromptLength,
		FinalPrompt:  out.FinalPrompt,
		Enhanced:     out.EnhancedPrompt != "",
		ImageCount:   out.ImageCount,
		DurationMs:   elapsed.Milliseconds(),
		CreatedAt:    out.Timestamp,
	}
	if !out.Success {
		event.Code = out.Code
	}

	recordCtx := context.WithoutCancel(ctx)
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("❌ [HISTORY] Recorder panicked for event %s: %v", eventID, rec)
			}
		}()
		if err := h.recorder.Record(recordCtx, event); err != nil {
			log.Printf("⚠️ [HISTORY] Failed to record event %s: %v", eventID, err)
		}
	}()
}

func eventStatus(out *Outcome) string {
	switch {
	case out.Success:
		return model.StatusCompleted
	case out.Status == http.StatusBadRequest:
		return model.StatusRejected
	default:
		return model.StatusFailed
	}
}

func panicError(rec interface{}) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return errors.New(defaultServerMessage)
}
