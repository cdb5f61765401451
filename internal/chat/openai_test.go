package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func newTestOpenAI(url string) *OpenAIClient {
	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: url, Model: "test-model", Timeout: 5 * time.Second}, zap.NewNop())
	c.httpClient = &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func drain(deltas <-chan string, errs <-chan error) (string, error) {
	var b strings.Builder
	for d := range deltas {
		b.WriteString(d)
	}
	return b.String(), <-errs
}

func writeSSE(w http.ResponseWriter, parts ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, p := range parts {
		chunk, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"delta": map[string]string{"content": p}}},
		})
		fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func TestOpenAIStreamsDeltas(t *testing.T) {
	received := make(chan openAIRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		var body openAIRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received <- body
		fmt.Fprint(w, ": keep-alive\n\n")
		writeSSE(w, "Plan ", "the ", "week.")
	}))
	defer srv.Close()

	req := CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "how should I plan?"}},
		Tasks:    []TaskSnapshot{{Title: "Write report", Status: "todo", Priority: "high"}},
	}
	text, err := drain(newTestOpenAI(srv.URL).Stream(context.Background(), req))
	require.NoError(t, err)
	assert.Equal(t, "Plan the week.", text)

	got := <-received
	assert.Equal(t, "test-model", got.Model)
	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "- Write report [todo, high priority]")
	assert.Equal(t, openAIMessage{Role: "user", Content: "how should I plan?"}, got.Messages[1])
}

func TestOpenAIRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		writeSSE(w, "ok")
	}))
	defer srv.Close()

	text, err := drain(newTestOpenAI(srv.URL).Stream(context.Background(), CompletionRequest{}))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIGivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := drain(newTestOpenAI(srv.URL).Stream(context.Background(), CompletionRequest{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := drain(newTestOpenAI(srv.URL).Stream(context.Background(), CompletionRequest{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIStreamErrorChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\"}}\n\n")
	}))
	defer srv.Close()

	text, err := drain(newTestOpenAI(srv.URL).Stream(context.Background(), CompletionRequest{}))
	assert.Equal(t, "Hel", text)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestOpenAIHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	text, err := drain(newTestOpenAI(srv.URL).Stream(ctx, CompletionRequest{}))
	assert.Equal(t, "partial", text)
	require.Error(t, err)
}

func TestSystemPromptListsTasks(t *testing.T) {
	est := 90
	prompt := SystemPrompt([]TaskSnapshot{
		{Title: "Pay rent", Status: "todo", Priority: "high", DueDate: "2026-10-16", TimeEstimate: &est},
	})
	assert.Contains(t, prompt, "- Pay rent [todo, high priority, due 2026-10-16, estimate 1h 30m]")
	assert.Contains(t, SystemPrompt(nil), "(none)")
}

func TestGeminiContentsMapsRoles(t *testing.T) {
	contents := geminiContents([]Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 1)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)
}
