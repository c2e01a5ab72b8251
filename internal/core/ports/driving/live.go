package driving

import (
	"context"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
)

// LiveIngestor accepts messages arriving in real time and flushes them
// through the chunking pipeline in batches.
type LiveIngestor interface {
	// Add buffers one message. It never blocks on an in-progress flush.
	Add(msg domain.Message)

	// Run drives the periodic flush loop until the context is cancelled.
	// Count-triggered flushes also happen here, so arrivals stay cheap.
	Run(ctx context.Context) error

	// Flush forces an immediate flush of the buffered messages.
	Flush(ctx context.Context) error

	// Pending returns the number of buffered, unflushed messages.
	Pending() int
}
