package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flux-image-gateway/modules/common/model"
)

func TestSplitMessages(t *testing.T) {
	system, user := splitMessages([]model.ChatMessage{
		{Role: model.RoleSystem, Content: "rule one"},
		{Role: model.RoleUser, Content: "first"},
		{Role: model.RoleSystem, Content: "rule two"},
		{Role: model.RoleUser, Content: "second"},
	})

	assert.Equal(t, "rule one\nrule two", system)
	assert.Equal(t, []string{"first", "second"}, user)
}

func TestExtractText(t *testing.T) {
	t.Run("joins text parts", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("soft "), genai.Text("light")}},
			}},
		}
		text, err := extractText(resp)
		require.NoError(t, err)
		assert.Equal(t, "soft light", text)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, err := extractText(&genai.GenerateContentResponse{})
		assert.Error(t, err)
	})

	t.Run("nil content", func(t *testing.T) {
		_, err := extractText(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		})
		assert.Error(t, err)
	})

	t.Run("non text parts only", func(t *testing.T) {
		_, err := extractText(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png", Data: []byte{1}}}},
			}},
		})
		assert.Error(t, err)
	})
}

func TestNewEnhancer_RequiresKey(t *testing.T) {
	_, err := NewEnhancer(context.Background(), "", "gemini-2.0-flash")
	assert.Error(t, err)
}
