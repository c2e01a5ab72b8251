// Package ratelimit wraps an embedding service with a token-bucket rate
// limiter. Hosted embedding APIs throttle aggressively during a full
// reindex; the limiter keeps the ingestion driver under the provider's
// request budget instead of burning retries.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/lembra-labs/lembra-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService decorates another embedding service, delaying each
// request until the limiter grants it.
type EmbeddingService struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
}

// Wrap decorates the given service with a limit of rps requests per second
// and the given burst. A non-positive rps disables limiting.
func Wrap(inner driven.EmbeddingService, rps float64, burst int) *EmbeddingService {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &EmbeddingService{
		inner:   inner,
		limiter: limiter,
	}
}

// Embed waits for the limiter, then delegates.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Embed(ctx, text)
}

// EmbedBatch waits for the limiter once per call, then delegates. A batch
// counts as one request against the provider.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.EmbedBatch(ctx, texts)
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping delegates without consuming limiter budget.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}
