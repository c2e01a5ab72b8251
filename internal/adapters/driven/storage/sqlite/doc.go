// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements both storage interfaces
// through a single database connection:
//
//   - Ledger: the set of already-ingested message IDs
//   - ChunkStore: embedded chunks with their metadata and vectors
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.lembra/data/lembra.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode; ledger commits run inside a single transaction so a
// concurrent reader never observes a partial commit.
package sqlite
