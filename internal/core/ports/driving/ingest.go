package driving

import (
	"context"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
)

// BatchIngestor orchestrates batch ingestion of the exported corpus.
type BatchIngestor interface {
	// Run loads the corpus, chunks the ledger delta, embeds and stores the
	// resulting chunks, and commits their member IDs. Storage failures for
	// individual chunks do not abort the run; they are counted in the
	// report. Running twice with no new messages stores nothing the second
	// time.
	Run(ctx context.Context) (domain.IngestReport, error)

	// Reindex clears the chunk store and the ledger, then runs a full
	// ingestion from scratch.
	Reindex(ctx context.Context) (domain.IngestReport, error)

	// Status reports the durable ledger and store state.
	Status(ctx context.Context) (domain.IngestStatus, error)
}
