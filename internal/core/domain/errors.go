package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOutOfOrder indicates a data-integrity violation: message identifiers
	// in an ordered input are not strictly ascending. The chunking call fails
	// rather than silently producing out-of-order chunks.
	ErrOutOfOrder = errors.New("message identifiers out of order")

	// ErrLedger indicates the ingestion ledger could not be read or written.
	// Ingestion must not proceed on unreadable ledger state, since that risks
	// storing duplicate chunks.
	ErrLedger = errors.New("ledger unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the chunk store is not configured.
	ErrStoreUnavailable = errors.New("chunk store unavailable")

	// ErrIngestInProgress indicates an ingestion run is already running.
	ErrIngestInProgress = errors.New("ingestion in progress")
)
