package driven

import (
	"context"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
)

// MessageSource loads the exported message corpus. The export parser behind
// it has already resolved authorship (continuation messages inherit the
// preceding author, unknowns carry the sentinel) and reply targets.
type MessageSource interface {
	// Load returns the full corpus, merged across export files and
	// de-duplicated by ID, ascending by ID.
	Load(ctx context.Context) ([]domain.Message, error)
}

// MessageTail streams messages captured in real time. It feeds the live
// buffer; the batch path never uses it.
type MessageTail interface {
	// Tail returns a channel of live messages and a channel of errors.
	// Both are closed when the context is cancelled or the source ends.
	Tail(ctx context.Context) (<-chan domain.Message, <-chan error)
}
