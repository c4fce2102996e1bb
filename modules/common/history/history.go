package history

import (
	"context"
	"log"
	"time"

	"flux-image-gateway/modules/common/model"
)

// sink 1개당 기록 제한 시간
const recordTimeout = 3 * time.Second

// Recorder - 요청 처리 기록을 남기는 sink
type Recorder interface {
	Name() string
	Record(ctx context.Context, event *model.GenerationEvent) error
}

// Nop - 아무것도 기록하지 않음 (sink 미설정 시)
type Nop struct{}

func (Nop) Name() string { return "nop" }

func (Nop) Record(context.Context, *model.GenerationEvent) error { return nil }

// Fanout - 여러 sink 에 순서대로 기록, 실패는 로그만 남기고 계속 진행
type Fanout struct {
	recorders []Recorder
}

// NewFanout - nil sink 는 제외
func NewFanout(recorders ...Recorder) *Fanout {
	f := &Fanout{}
	for _, r := range recorders {
		if r != nil {
			f.recorders = append(f.recorders, r)
		}
	}
	return f
}

// Len - 등록된 sink 수
func (f *Fanout) Len() int {
	return len(f.recorders)
}

func (f *Fanout) Name() string { return "fanout" }

// Record - 항상 nil 반환 (history 실패가 응답에 영향을 주지 않도록)
func (f *Fanout) Record(ctx context.Context, event *model.GenerationEvent) error {
	for _, r := range f.recorders {
		sinkCtx, cancel := context.WithTimeout(ctx, recordTimeout)
		if err := r.Record(sinkCtx, event); err != nil {
			log.Printf("⚠️ [HISTORY] %s failed for event %s: %v", r.Name(), event.EventID, err)
		}
		cancel()
	}
	return nil
}
