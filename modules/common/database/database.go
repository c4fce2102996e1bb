package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/supabase-community/supabase-go"

	"flux-image-gateway/modules/common/model"
)

type Client struct {
	supabase *supabase.Client
	table    string
}

// NewClient - Supabase 클라이언트 생성
func NewClient(url, serviceKey, table string) (*Client, error) {
	supabaseClient, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	log.Printf("✅ [Supabase] History table: %s", table)
	return &Client{
		supabase: supabaseClient,
		table:    table,
	}, nil
}

// Name - 로그용 이름
func (c *Client) Name() string {
	return "supabase:" + c.table
}

// Record - history 테이블에 이벤트 1건 INSERT
// postgrest 호출은 context 를 받지 않으므로 별도 goroutine 에서 실행하고 ctx 만료 시 먼저 반환
func (c *Client) Record(ctx context.Context, event *model.GenerationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	row := eventRow(event)
	done := make(chan error, 1)
	go func() {
		_, _, err := c.supabase.From(c.table).
			Insert(row, false, "", "", "").
			Execute()
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to insert history row: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("history insert abandoned: %w", ctx.Err())
	}
}

// eventRow - 테이블 컬럼 매핑
func eventRow(event *model.GenerationEvent) map[string]interface{} {
	row := map[string]interface{}{
		"event_id":      event.EventID,
		"status":        event.Status,
		"prompt_length": event.PromptLength,
		"enhanced":      event.Enhanced,
		"image_count":   event.ImageCount,
		"duration_ms":   event.DurationMs,
		"created_at":    event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if event.Code != "" {
		row["error_code"] = event.Code
	}
	if event.FinalPrompt != "" {
		row["final_prompt"] = event.FinalPrompt
	}
	return row
}
