package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("missing API key header, got %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("missing anthropic-version header")
		}

		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("expected a single user message, got %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "오늘의 요약입니다."}},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", "test-model")
	client.baseURL = srv.URL
	client.httpClient = srv.Client()

	text, err := client.Complete(context.Background(), "요약해 주세요", 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "오늘의 요약입니다." {
		t.Errorf("unexpected completion %q", text)
	}
}

func TestClient_Complete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "rate_limit_error", "message": "rate limited"},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", "test-model")
	client.baseURL = srv.URL
	client.httpClient = srv.Client()

	_, err := client.Complete(context.Background(), "요약", 1024)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("expected API error message surfaced, got %v", err)
	}
}
