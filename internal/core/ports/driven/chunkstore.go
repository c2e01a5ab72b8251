package driven

import (
	"context"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
)

// ChunkStore persists embedded chunks for retrieval. It is the boundary to
// the storage collaborator: the core hands over a chunk per call and needs
// nothing back beyond success or failure.
type ChunkStore interface {
	// SaveChunk stores one chunk. Saving a chunk whose ID already exists
	// overwrites it; chunk IDs are deterministic, so this keeps re-runs
	// idempotent at the store level too.
	SaveChunk(ctx context.Context, chunk *domain.Chunk) error

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// Reset removes all stored chunks. Used only by the full reindex
	// operation, together with Ledger.Clear.
	Reset(ctx context.Context) error
}
