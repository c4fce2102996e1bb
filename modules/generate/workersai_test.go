package generate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flux-image-gateway/modules/common/model"
	"flux-image-gateway/modules/common/workersai"
)

type fakeRunner struct {
	raw         json.RawMessage
	err         error
	model       string
	input       any
	body        []byte
	contentType string
	opts        workersai.RunOptions
}

func (f *fakeRunner) Run(_ context.Context, modelName string, input any, opts workersai.RunOptions) (json.RawMessage, error) {
	f.model, f.input, f.opts = modelName, input, opts
	return f.raw, f.err
}

func (f *fakeRunner) RunMultipart(_ context.Context, modelName string, body io.Reader, contentType string, opts workersai.RunOptions) (json.RawMessage, error) {
	f.model, f.contentType, f.opts = modelName, contentType, opts
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.body = data
	return f.raw, f.err
}

func TestWorkersAIEnhancer_Enhance(t *testing.T) {
	runner := &fakeRunner{raw: json.RawMessage(`{"response":"a vivid cat"}`)}
	enhancer := NewWorkersAIEnhancer(runner, "@cf/meta/llama-3.1-8b-instruct", "gw")

	result, err := enhancer.Enhance(context.Background(), buildEnhanceMessages("cat"))
	require.NoError(t, err)
	assert.Equal(t, "a vivid cat", result.Text)

	assert.Equal(t, "@cf/meta/llama-3.1-8b-instruct", runner.model)
	assert.Equal(t, "gw", runner.opts.GatewayID)

	encoded, err := json.Marshal(runner.input)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"messages":[{"role":"system"`)
}

func TestWorkersAIEnhancer_MalformedResponse(t *testing.T) {
	for _, raw := range []string{`{"result":"x"}`, `not json`, `{"response":42}`} {
		enhancer := NewWorkersAIEnhancer(&fakeRunner{raw: json.RawMessage(raw)}, "m", "")
		_, err := enhancer.Enhance(context.Background(), buildEnhanceMessages("cat"))
		assert.Error(t, err, raw)
	}
}

func TestWorkersAIEnhancer_PropagatesError(t *testing.T) {
	enhancer := NewWorkersAIEnhancer(&fakeRunner{err: errors.New("boom")}, "m", "")
	_, err := enhancer.Enhance(context.Background(), nil)
	assert.EqualError(t, err, "boom")
}

func TestWorkersAIImageGenerator_Generate(t *testing.T) {
	runner := &fakeRunner{raw: json.RawMessage(`{"image":"abc123"}`)}
	generator := NewWorkersAIImageGenerator(runner, "@cf/black-forest-labs/flux-2-dev")

	payload := &model.MultipartPayload{Body: []byte("--b\r\n"), ContentType: "multipart/form-data; boundary=b"}
	result, err := generator.Generate(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "abc123", result.Image)

	assert.Equal(t, "@cf/black-forest-labs/flux-2-dev", runner.model)
	assert.Equal(t, payload.ContentType, runner.contentType)
	assert.Equal(t, payload.Body, runner.body)
	assert.Empty(t, runner.opts.GatewayID)
}

func TestWorkersAIImageGenerator_InvalidResponse(t *testing.T) {
	for _, raw := range []string{`{}`, `{"image":""}`, `[]`, `garbage`} {
		generator := NewWorkersAIImageGenerator(&fakeRunner{raw: json.RawMessage(raw)}, "m")
		_, err := generator.Generate(context.Background(), &model.MultipartPayload{})
		assert.ErrorIs(t, err, ErrInvalidFluxResponse, raw)
	}
}

func TestWorkersAIImageGenerator_ErrorClassifiable(t *testing.T) {
	apiErr := &workersai.APIError{
		StatusCode: 400,
		Errors:     []workersai.ResponseError{{Code: 3030, Message: "flagged"}},
	}
	generator := NewWorkersAIImageGenerator(&fakeRunner{err: apiErr}, "m")

	_, err := generator.Generate(context.Background(), &model.MultipartPayload{})
	require.Error(t, err)

	code, _ := ClassifyGenerationError(err)
	assert.Equal(t, CodeContentModeration, code)
}
