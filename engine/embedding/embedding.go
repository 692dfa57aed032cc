// Package embedding maps text to fixed-dimension numeric vectors via a
// pluggable external model.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Provider generates embeddings from text. Implementations must honor ctx
// cancellation: embedding calls hit an external model and may block.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}

// EmbedBatch embeds each text in order using p. It stops at the first error.
func EmbedBatch(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding: batch item %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Limited wraps a Provider with a token-bucket rate limiter so bursts of
// chunk embeddings during ingestion do not trip provider-side limits.
type Limited struct {
	inner   Provider
	limiter *rate.Limiter
}

// Limit wraps p, allowing up to rps embedding calls per second with the
// given burst.
func Limit(p Provider, rps float64, burst int) *Limited {
	if burst <= 0 {
		burst = 1
	}
	return &Limited{inner: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *Limited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding: rate limit wait: %w", err)
	}
	return l.inner.Embed(ctx, text)
}

func (l *Limited) ModelName() string { return l.inner.ModelName() }
func (l *Limited) Dimensions() int   { return l.inner.Dimensions() }
