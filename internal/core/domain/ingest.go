package domain

import "time"

// IngestReport summarises one ingestion run. A run that stores some chunks
// and fails others is reported here rather than aborting: storage failures
// are recoverable per-chunk, and the counts tell the operator what happened.
type IngestReport struct {
	// RunID uniquely identifies this run in logs.
	RunID string

	// MessagesSeen is the total corpus size after merging export sources.
	MessagesSeen int

	// NewMessages is the size of the ledger delta for this run.
	NewMessages int

	// ChunksStored counts chunks successfully embedded, stored and committed.
	ChunksStored int

	// ChunksFailed counts chunks whose embedding or storage failed. Their
	// member messages stay out of the ledger and are retried next run.
	ChunksFailed int

	// ChunksSkipped counts chunks whose members were already fully committed.
	ChunksSkipped int

	StartedAt  time.Time
	FinishedAt time.Time
}

// IngestStatus describes the durable state of the ingestion pipeline.
type IngestStatus struct {
	// ProcessedMessages is the number of message IDs in the ledger.
	ProcessedMessages int

	// StoredChunks is the number of chunks in the chunk store.
	StoredChunks int
}
