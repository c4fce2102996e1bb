package workersai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("acct", "secret", WithAPIBaseURL(srv.URL), WithGatewayBaseURL(srv.URL+"/gw"))
}

func TestRun_DirectURLAndResult(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"result":{"response":"hello"},"success":true,"errors":[],"messages":[]}`))
	})

	raw, err := c.Run(context.Background(), "@cf/meta/llama-3.2-3b-instruct", map[string]string{"prompt": "x"}, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, "/accounts/acct/ai/run/@cf/meta/llama-3.2-3b-instruct", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "x", gotBody["prompt"])
	assert.JSONEq(t, `{"response":"hello"}`, string(raw))
}

func TestRun_GatewayURL(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"result":{"response":"ok"},"success":true}`))
	})

	_, err := c.Run(context.Background(), "@cf/meta/llama-3.2-3b-instruct", nil, RunOptions{GatewayID: "my-gw"})
	require.NoError(t, err)
	assert.Equal(t, "/gw/acct/my-gw/workers-ai/@cf/meta/llama-3.2-3b-instruct", gotPath)
}

func TestRun_BareGatewayBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"bare"}`))
	})

	raw, err := c.Run(context.Background(), "m", nil, RunOptions{GatewayID: "gw"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"bare"}`, string(raw))
}

func TestRunMultipart_ForwardsBodyAndContentType(t *testing.T) {
	var gotType, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"result":{"image":"abc"},"success":true}`))
	})

	raw, err := c.RunMultipart(context.Background(), "@cf/black-forest-labs/flux-2-dev",
		strings.NewReader("--b\r\n"), "multipart/form-data; boundary=b", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data; boundary=b", gotType)
	assert.Equal(t, "--b\r\n", gotBody)
	assert.JSONEq(t, `{"image":"abc"}`, string(raw))
}

func TestRun_ErrorsEmbedProviderCodes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"capacity", http.StatusBadRequest, `{"success":false,"errors":[{"code":3040,"message":"Capacity temporarily exceeded, please try again."}]}`, "AiError: 3040: Capacity temporarily exceeded"},
		{"moderation on 200", http.StatusOK, `{"success":false,"errors":[{"code":3030,"message":"flagged"}],"result":null}`, "AiError: 3030: flagged"},
		{"bare 429", http.StatusTooManyRequests, `too many`, "rate limit"},
		{"bare 500", http.StatusInternalServerError, `boom`, "workers ai request failed (500): boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Run(context.Background(), "m", nil, RunOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestRun_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.Run(context.Background(), "m", nil, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestAPIError_LongBodyCutOnRuneBoundary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("오류", 100)))
	})

	_, err := c.Run(context.Background(), "m", nil, RunOptions{})
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.True(t, strings.HasSuffix(err.Error(), "..."))
}

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	return http.DefaultTransport.RoundTrip(req)
}

func TestWithHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"result":{"response":"ok"}}`))
	}))
	defer srv.Close()

	transport := &countingTransport{}
	c := NewClient("acct", "secret", WithAPIBaseURL(srv.URL), WithHTTPClient(&http.Client{Transport: transport}))

	_, err := c.Run(context.Background(), "m", map[string]string{}, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, transport.calls)
}
