package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tradescan/marketscout/internal/ratelimit"
)

func TestOpenAIClient_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		resp := map[string]any{"data": []map[string]any{}}
		data := resp["data"].([]map[string]any)
		for i := range req.Input {
			data = append(data, map[string]any{
				"embedding": []float32{float32(i), 1, 2},
				"index":     i,
			})
		}
		resp["data"] = data
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", "text-embedding-3-small", srv.URL)
	vectors, err := c.Embed(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if len(vectors[0]) != 3 {
		t.Fatalf("expected 3-dim vectors, got %d", len(vectors[0]))
	}
}

func TestOpenAIClient_RateLimitedSurfacesHints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ratelimit-remaining-requests", "0")
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", "", srv.URL)
	_, err := c.Embed(context.Background(), []string{"x"})

	var rl *ratelimit.Error
	if !errors.As(err, &rl) {
		t.Fatalf("expected *ratelimit.Error, got %v", err)
	}
	if rl.Status != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rl.Status)
	}
	if rl.Hints.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", rl.Hints.Remaining)
	}
	if rl.Hints.RetryAfter != 7*time.Second {
		t.Fatalf("expected retry-after 7s, got %v", rl.Hints.RetryAfter)
	}
}

func TestOpenAIClient_ServerErrorIsNotThrottle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", "", srv.URL)
	_, err := c.Embed(context.Background(), []string{"x"})
	if err == nil {
		t.Fatal("expected error")
	}
	var rl *ratelimit.Error
	if errors.As(err, &rl) {
		t.Fatalf("500 must not be a throttle error, got %v", err)
	}
}

func TestFactory_Create(t *testing.T) {
	f := NewFactory()

	p, err := f.Create(ProviderConfig{Provider: "openai", APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "openai" {
		t.Fatalf("expected openai, got %s", p.Name())
	}

	p, err = f.Create(ProviderConfig{Provider: "cohere", APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "cohere" {
		t.Fatalf("expected cohere, got %s", p.Name())
	}

	if _, err := f.Create(ProviderConfig{Provider: "quantum"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
