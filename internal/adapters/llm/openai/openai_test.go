package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iamwavecut/reportbot/internal/adapters/llm"
)

func TestChatCompletionSendsExpectedRequest(t *testing.T) {
	t.Parallel()

	var (
		gotAuth, gotReferer, gotTitle, gotPath string
		gotBody                                map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"action\":\"OK\"}"}}]}`))
	}))
	defer srv.Close()

	api := NewOpenAI(Options{
		APIKey:  "sk-test",
		Model:   "test/model",
		BaseURL: srv.URL + "/api/v1",
		Referer: "https://example.org",
		Title:   "Report Bot",
	}, llm.GenerationParameters{Temperature: 0.3, MaxOutputTokens: 500})

	resp, err := api.ChatCompletion(context.Background(), []llm.ChatCompletionMessage{
		{Role: llm.RoleSystem, Content: "policy"},
		{Role: llm.RoleUser, Content: "text"},
	})
	if err != nil {
		t.Fatalf("chat completion: %v", err)
	}
	content, err := resp.Content()
	if err != nil || content != `{"action":"OK"}` {
		t.Fatalf("unexpected content: %q (%v)", content, err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotReferer != "https://example.org" || gotTitle != "Report Bot" {
		t.Fatalf("unexpected attribution headers: %q %q", gotReferer, gotTitle)
	}
	if gotPath != "/api/v1/chat/completions" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["model"] != "test/model" {
		t.Fatalf("unexpected model: %v", gotBody["model"])
	}
	if gotBody["temperature"] != 0.3 {
		t.Fatalf("unexpected temperature: %v", gotBody["temperature"])
	}
	if gotBody["max_tokens"] != float64(500) {
		t.Fatalf("unexpected max_tokens: %v", gotBody["max_tokens"])
	}
	messages, ok := gotBody["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("unexpected messages: %v", gotBody["messages"])
	}
}

func TestChatCompletionMapsStatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "api error", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down","type":"rate_limit"}}`},
		{name: "plain body", status: http.StatusBadGateway, body: `upstream gone`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			api := NewOpenAI(Options{APIKey: "k", BaseURL: srv.URL}, llm.GenerationParameters{})
			_, err := api.ChatCompletion(context.Background(), []llm.ChatCompletionMessage{{Role: llm.RoleUser, Content: "x"}})
			var statusErr *llm.StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected status error, got %v", err)
			}
			if statusErr.StatusCode != tt.status {
				t.Fatalf("unexpected status: got %d want %d", statusErr.StatusCode, tt.status)
			}
		})
	}
}
