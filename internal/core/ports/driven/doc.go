// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - MessageSource: Loads the exported message corpus
//   - Ledger: Persists the set of already-ingested message IDs
//   - ChunkStore: Persists embedded chunks for retrieval
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, chunks are
//     stored without vectors and semantic retrieval is disabled.
//   - MessageTail: Streams live messages. Only the live command needs it.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
