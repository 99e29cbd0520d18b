package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

func writeAnthropicMessage(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
	})
}

func TestAnthropicClient_Complete(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s, want /v1/messages", r.URL.Path)
		}
		var body struct {
			System []struct {
				Text string `json:"text"`
			} `json:"system"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.System) != 1 || body.System[0].Text != "classify" {
			t.Errorf("system = %+v, want one block 'classify'", body.System)
		}
		if n == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
			return
		}
		writeAnthropicMessage(w, `{"type":"paper","title":"X"}`)
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key", "claude-haiku-4-5-20251001", fastOptions(), option.WithBaseURL(server.URL))
	reply, err := client.Complete(context.Background(), "classify", "excerpt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != `{"type":"paper","title":"X"}` {
		t.Errorf("Complete() = %q", reply)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2 (one retry after 429)", got)
	}
}

func TestAnthropicClient_PermanentError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key", "m", fastOptions(), option.WithBaseURL(server.URL))
	if _, err := client.Complete(context.Background(), "", "x"); err == nil {
		t.Fatal("Complete() should fail on 400")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}
