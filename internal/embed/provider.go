// Package embed turns free text into fixed-length vectors through an
// external embedding provider, with batching and graceful per-item
// degradation. All outbound calls are paced by a ratelimit.Governor.
package embed

import (
	"context"
	"errors"
)

// ErrNoEmbedding is returned when the provider responds successfully but
// carries no embedding data. Callers must not substitute zeros.
var ErrNoEmbedding = errors.New("provider returned no embedding")

// Provider is the interface all embedding backends implement. Embed returns
// one vector per input text, in input order. Throttle responses must surface
// as rate-limit-shaped errors so the governor can react.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}
