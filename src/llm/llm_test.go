package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueryVisionValidation(t *testing.T) {
	ctx := context.Background()

	if _, err := New(Config{Model: "m"}).QueryVision(ctx, []byte{1}); err == nil {
		t.Error("Expected error with missing API key")
	}
	if _, err := New(Config{APIKey: "k"}).QueryVision(ctx, []byte{1}); err == nil {
		t.Error("Expected error with missing model")
	}
	if err := New(Config{}).Ping(ctx); err == nil {
		t.Error("Expected ping error without configuration")
	}
}

func chatServer(t *testing.T, handler func(req ChatRequest) (int, ChatResponse)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		status, resp := handler(req)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func reply(text string) ChatResponse {
	return ChatResponse{Choices: []Choice{{Message: ResponseMessage{Content: text}}}}
}

func TestQueryVisionReturnsText(t *testing.T) {
	srv := chatServer(t, func(req ChatRequest) (int, ChatResponse) {
		if req.Model != "vision-model" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 1 || len(req.Messages[0].Content) != 2 {
			t.Errorf("unexpected message shape: %+v", req.Messages)
			return http.StatusBadRequest, ChatResponse{}
		}
		img := req.Messages[0].Content[1].ImageURL
		if img == nil || !strings.HasPrefix(img.URL, "data:image/png;base64,") {
			t.Errorf("image not sent as PNG data URL: %+v", img)
		}
		if req.Provider == nil || req.Provider.Order[0] != "acme" {
			t.Errorf("provider preferences not forwarded: %+v", req.Provider)
		}
		return http.StatusOK, reply("Hello World</image>")
	})

	c := New(Config{APIKey: "test-key", Model: "vision-model", Providers: []string{"acme"}, URL: srv.URL})
	text, err := c.QueryVision(context.Background(), []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("QueryVision failed: %v", err)
	}
	if text != "Hello World" {
		t.Errorf("text = %q, expected %q", text, "Hello World")
	}
}

func TestQueryVisionNoTextMarker(t *testing.T) {
	srv := chatServer(t, func(ChatRequest) (int, ChatResponse) {
		return http.StatusOK, reply(noTextMarker)
	})
	c := New(Config{APIKey: "test-key", Model: "m", URL: srv.URL})
	text, err := c.QueryVision(context.Background(), []byte{1})
	if err != nil || text != "" {
		t.Fatalf("expected empty text and no error, got %q, %v", text, err)
	}
}

func TestQueryVisionRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, func(ChatRequest) (int, ChatResponse) {
		calls.Add(1)
		return http.StatusTooManyRequests, ChatResponse{Error: &APIError{Message: "rate limited", Type: "rate", Code: 429}}
	})
	c := New(Config{APIKey: "test-key", Model: "m", URL: srv.URL})
	c.retryDelay = time.Millisecond

	_, err := c.QueryVision(context.Background(), []byte{1})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if calls.Load() != maxRetries {
		t.Errorf("calls = %d, expected %d", calls.Load(), maxRetries)
	}
}

func TestPing(t *testing.T) {
	srv := chatServer(t, func(req ChatRequest) (int, ChatResponse) {
		if req.MaxTokens != 1 {
			t.Errorf("ping should be minimal, max_tokens=%d", req.MaxTokens)
		}
		return http.StatusOK, reply("pong")
	})
	if err := New(Config{APIKey: "test-key", Model: "m", URL: srv.URL}).Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
