package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tradescan/marketscout/internal/ratelimit"
)

// defaultBatchSize bounds how many texts go into one provider call.
const defaultBatchSize = 50

// Embedder produces embedding vectors through a Provider, pacing every
// outbound call — batch or individual — with one shared Governor.
type Embedder struct {
	provider  Provider
	governor  *ratelimit.Governor
	batchSize int
}

// New creates an Embedder. batchSize <= 0 uses the default cap.
func New(provider Provider, governor *ratelimit.Governor, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Embedder{
		provider:  provider,
		governor:  governor,
		batchSize: batchSize,
	}
}

// Embed returns the embedding vector for one text. A provider response with
// no embedding data is an error, never a silent zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vectors [][]float32
	err := ratelimit.Do(ctx, e.governor, func(ctx context.Context) error {
		var callErr error
		vectors, callErr = e.provider.Embed(ctx, []string{text})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ErrNoEmbedding
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in provider-sized chunks. If a chunk call fails,
// every text in it is re-embedded individually; a text that still fails
// gets an empty-vector placeholder at its original index. Output index i
// always corresponds to input index i.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[start:end]

		vectors, err := e.embedChunk(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("batch embedding failed, falling back to individual calls",
				"provider", e.provider.Name(), "chunk_size", len(chunk), "error", err)
			e.embedIndividually(ctx, chunk, out[start:end])
			continue
		}
		copy(out[start:end], vectors)
	}

	return out, nil
}

// embedChunk sends one governed batch call and validates the response shape.
func (e *Embedder) embedChunk(ctx context.Context, chunk []string) ([][]float32, error) {
	var vectors [][]float32
	err := ratelimit.Do(ctx, e.governor, func(ctx context.Context) error {
		var callErr error
		vectors, callErr = e.provider.Embed(ctx, chunk)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunk) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(chunk))
	}
	return vectors, nil
}

// embedIndividually fills slots one text at a time. Failures leave an empty
// vector placeholder so downstream treats the slot as unavailable.
func (e *Embedder) embedIndividually(ctx context.Context, chunk []string, out [][]float32) {
	for i, text := range chunk {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			slog.Warn("individual embedding failed, using placeholder",
				"provider", e.provider.Name(), "error", err)
			out[i] = []float32{}
			continue
		}
		out[i] = vec
	}
}
