package embed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tradescan/marketscout/internal/ratelimit"
)

// mockProvider scripts per-call behavior. failBatches makes any call with
// more than one text fail; failTexts makes specific texts fail even when
// embedded individually.
type mockProvider struct {
	calls       [][]string
	failBatches bool
	failTexts   map[string]bool
	throttleN   int // first N calls return a throttle error
	dim         int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls = append(m.calls, append([]string(nil), texts...))

	if m.throttleN > 0 {
		m.throttleN--
		return nil, &ratelimit.Error{Provider: "mock", Status: 429, Hints: ratelimit.Hints{Remaining: -1}}
	}
	if m.failBatches && len(texts) > 1 {
		return nil, errors.New("batch too hot")
	}

	dim := m.dim
	if dim == 0 {
		dim = 4
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.failTexts[text] {
			return nil, fmt.Errorf("cannot embed %q", text)
		}
		vec := make([]float32, dim)
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func fastGovernor(maxRetries int) *ratelimit.Governor {
	return ratelimit.New(&ratelimit.Config{
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		MaxRetries:  maxRetries,
	})
}

func TestEmbed_SingleText(t *testing.T) {
	mock := &mockProvider{}
	e := New(mock, fastGovernor(3), 0)

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 4 {
		t.Fatalf("expected 4-dim vector, got %d", len(vec))
	}
}

func TestEmbed_NoDataIsError(t *testing.T) {
	e := New(&emptyProvider{}, fastGovernor(3), 0)

	_, err := e.Embed(context.Background(), "hello")
	if !errors.Is(err, ErrNoEmbedding) {
		t.Fatalf("expected ErrNoEmbedding, got %v", err)
	}
}

// emptyProvider always returns no embedding data.
type emptyProvider struct{}

func (emptyProvider) Name() string { return "empty" }
func (emptyProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func TestEmbed_RetriesThrottle(t *testing.T) {
	mock := &mockProvider{throttleN: 2}
	e := New(mock, fastGovernor(5), 0)

	vec, err := e.Embed(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) == 0 {
		t.Fatal("expected vector after throttle retries")
	}
	if len(mock.calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(mock.calls))
	}
}

func TestEmbedBatch_ChunksAndPreservesOrder(t *testing.T) {
	mock := &mockProvider{}
	e := New(mock, fastGovernor(3), 2)

	texts := []string{"a", "bb", "ccc"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	// Cap 2 over 3 texts: exactly 2 provider calls.
	if len(mock.calls) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(mock.calls))
	}
	// vec[0] encodes input length, so order is observable.
	for i, text := range texts {
		if vectors[i][0] != float32(len(text)) {
			t.Fatalf("slot %d: expected vector for %q, got first element %v", i, text, vectors[i][0])
		}
	}
}

func TestEmbedBatch_SingleChunkSizes(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		mock := &mockProvider{}
		e := New(mock, fastGovernor(3), 5)

		texts := make([]string, n)
		for i := range texts {
			texts[i] = fmt.Sprintf("t%d", i)
		}
		vectors, err := e.EmbedBatch(context.Background(), texts)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if len(vectors) != n {
			t.Fatalf("n=%d: expected %d vectors, got %d", n, n, len(vectors))
		}
		if len(mock.calls) != 1 {
			t.Fatalf("n=%d: expected 1 provider call, got %d", n, len(mock.calls))
		}
	}
}

func TestEmbedBatch_FallsBackToIndividual(t *testing.T) {
	mock := &mockProvider{failBatches: true}
	e := New(mock, fastGovernor(3), 10)

	texts := []string{"x", "y", "z"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i := range vectors {
		if len(vectors[i]) == 0 {
			t.Fatalf("slot %d: expected real vector from fallback", i)
		}
	}
	// One failed batch call plus three individual calls.
	if len(mock.calls) != 4 {
		t.Fatalf("expected 4 provider calls, got %d", len(mock.calls))
	}
}

func TestEmbedBatch_PlaceholderForFailedText(t *testing.T) {
	mock := &mockProvider{
		failBatches: true,
		failTexts:   map[string]bool{"bad": true},
	}
	e := New(mock, fastGovernor(3), 10)

	texts := []string{"good", "bad", "fine"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(vectors))
	}
	if len(vectors[0]) == 0 || len(vectors[2]) == 0 {
		t.Fatal("expected real vectors for texts that embed")
	}
	if vectors[1] == nil || len(vectors[1]) != 0 {
		t.Fatalf("expected empty-vector placeholder at index 1, got %v", vectors[1])
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	mock := &mockProvider{}
	e := New(mock, fastGovernor(3), 10)

	vectors, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 0 {
		t.Fatalf("expected no vectors, got %d", len(vectors))
	}
	if len(mock.calls) != 0 {
		t.Fatalf("expected no provider calls, got %d", len(mock.calls))
	}
}
