package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
)

func newTestLLM(t *testing.T, handler http.HandlerFunc) (*LLMService, *[]chatRequest) {
	t.Helper()
	var seen []chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chat/completions" {
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			seen = append(seen, req)
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "deepseek-ai/DeepSeek-V3"})
	require.NoError(t, err)
	return svc, &seen
}

func sseHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			fmt.Fprintf(w, "%s\n\n", f)
		}
	}
}

var msgs = []driven.ChatMessage{
	{Role: "system", Content: "be brief"},
	{Role: "user", Content: "hello"},
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestLLMService_Chat(t *testing.T) {
	svc, seen := newTestLLM(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Hi there."}}]}`))
	})

	reply, err := svc.Chat(context.Background(), msgs, driven.ChatOptions{Temperature: driven.Temperature(0)})
	require.NoError(t, err)
	assert.Equal(t, "Hi there.", reply)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, "deepseek-ai/DeepSeek-V3", req.Model)
	assert.False(t, req.Stream)
	require.NotNil(t, req.Temperature, "an explicit zero temperature is sent")
	assert.Zero(t, *req.Temperature)
	assert.Len(t, req.Messages, 2)
}

func TestLLMService_Chat_Error(t *testing.T) {
	svc, _ := newTestLLM(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	})

	_, err := svc.Chat(context.Background(), msgs, driven.ChatOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestLLMService_ChatStream(t *testing.T) {
	svc, seen := newTestLLM(t, sseHandler(
		`: keep-alive`,
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		`data: [DONE]`,
	))

	var got []string
	err := svc.ChatStream(context.Background(), msgs, driven.ChatOptions{}, func(d string) error {
		got = append(got, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, got)
	assert.True(t, (*seen)[0].Stream)
	assert.Nil(t, (*seen)[0].Temperature)
}

func TestLLMService_ChatStream_Failures(t *testing.T) {
	t.Run("truncated stream", func(t *testing.T) {
		svc, _ := newTestLLM(t, sseHandler(`data: {"choices":[{"delta":{"content":"a"}}]}`))
		err := svc.ChatStream(context.Background(), msgs, driven.ChatOptions{}, func(string) error { return nil })
		assert.Error(t, err)
	})

	t.Run("callback error is returned unchanged", func(t *testing.T) {
		svc, _ := newTestLLM(t, sseHandler(
			`data: {"choices":[{"delta":{"content":"a"}}]}`,
			`data: {"choices":[{"delta":{"content":"b"}}]}`,
			`data: [DONE]`,
		))
		stop := errors.New("stop")
		calls := 0
		err := svc.ChatStream(context.Background(), msgs, driven.ChatOptions{}, func(string) error {
			calls++
			return stop
		})
		assert.Same(t, stop, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("http error", func(t *testing.T) {
		svc, _ := newTestLLM(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		})
		err := svc.ChatStream(context.Background(), msgs, driven.ChatOptions{}, func(string) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}

func TestLLMService_DefaultTemperature(t *testing.T) {
	var seen chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&seen)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL, Temperature: driven.Temperature(0.3)})
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), msgs, driven.ChatOptions{})
	require.NoError(t, err)
	require.NotNil(t, seen.Temperature)
	assert.InDelta(t, 0.3, *seen.Temperature, 1e-9)
}
