package main

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, u *upstream, maxAttempts int) (*Client, *instantTimer) {
	t.Helper()
	cfg := testConfig(u.server.URL)
	cfg.MaxAttempts = maxAttempts
	c := NewClient(cfg, discardLogger())
	timer := &instantTimer{}
	c.retry.timer = timer
	return c, timer
}

func userParams(model, text string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(text)},
			},
		}},
	}
}

// ---------------------------------------------------------------------------
// Happy path
// ---------------------------------------------------------------------------

func TestChatCompletionSendsAuthAndPayload(t *testing.T) {
	u := newUpstream(t, echoChat)
	c, _ := newTestClient(t, u, 3)

	resp, err := c.ChatCompletion(context.Background(), userParams("grok-3", "hi"))
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello from grok-3", resp.Choices[0].Message.Content)

	reqs := u.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/chat/completions", reqs[0].Path)
	assert.Equal(t, "Bearer test-key", reqs[0].Authorization)
	assert.Equal(t, "grok-3", reqs[0].Body["model"])
}

func TestCreateEmbeddingsPostsInputList(t *testing.T) {
	u := newUpstream(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []any{
				map[string]any{"object": "embedding", "index": 0, "embedding": []float64{0.1}},
				map[string]any{"object": "embedding", "index": 1, "embedding": []float64{0.2}},
			},
			"usage": map[string]any{"prompt_tokens": 2, "total_tokens": 2},
		})
	})
	c, _ := newTestClient(t, u, 3)

	resp, err := c.CreateEmbeddings(context.Background(), "text-embedding-3-small", []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, resp.Data, 2)

	reqs := u.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/embeddings", reqs[0].Path)
	assert.Equal(t, []any{"a", "b"}, reqs[0].Body["input"])
}

// ---------------------------------------------------------------------------
// Retry policy
// ---------------------------------------------------------------------------

func TestRetryOn429ExhaustsAttemptsWithExponentialBackoff(t *testing.T) {
	u := newUpstream(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusTooManyRequests, errorBody("rate limited"))
	})
	c, timer := newTestClient(t, u, 3)

	_, err := c.ChatCompletion(context.Background(), userParams("grok-3", "hi"))
	require.Error(t, err)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	assert.Equal(t, 3, ue.Attempts)
	assert.Equal(t, string(EndpointChat), ue.Endpoint)

	assert.Equal(t, 3, u.Hits(), "at most MaxAttempts requests")
	assert.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second}, timer.Waits())
}

func TestRetryBackoffCapsAtMaxInterval(t *testing.T) {
	u := newUpstream(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("overloaded"))
	})
	c, timer := newTestClient(t, u, 5)

	_, err := c.ChatCompletion(context.Background(), userParams("grok-3", "hi"))
	require.Error(t, err)
	assert.Equal(t, 5, u.Hits())
	assert.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}, timer.Waits())
}

func TestRetryRecoversAfterServerError(t *testing.T) {
	var calls atomic.Int32
	u := newUpstream(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusBadGateway, errorBody("bad gateway"))
			return
		}
		echoChat(w, r, body)
	})
	c, timer := newTestClient(t, u, 3)

	resp, err := c.ChatCompletion(context.Background(), userParams("grok-3", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello from grok-3", resp.Choices[0].Message.Content)
	assert.Equal(t, 2, u.Hits())
	assert.Equal(t, []time.Duration{4 * time.Second}, timer.Waits())
}

func TestNoRetryOnClientError(t *testing.T) {
	u := newUpstream(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusBadRequest, errorBody("bad model"))
	})
	c, timer := newTestClient(t, u, 3)

	_, err := c.ChatCompletion(context.Background(), userParams("grok-3", "hi"))
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadRequest, ue.StatusCode)
	assert.Equal(t, 1, ue.Attempts)
	assert.Equal(t, 1, u.Hits())
	assert.Empty(t, timer.Waits())
}

func TestRetryOnAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	u := newUpstream(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		echoChat(w, r, body)
	})
	c, _ := newTestClient(t, u, 3)
	c.retry.timeout = 100 * time.Millisecond

	resp, err := c.ChatCompletion(context.Background(), userParams("grok-3", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello from grok-3", resp.Choices[0].Message.Content)
	assert.Equal(t, 2, u.Hits())
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	u := newUpstream(t, echoChat)
	c, timer := newTestClient(t, u, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ChatCompletion(ctx, userParams("grok-3", "hi"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Empty(t, timer.Waits())
}
