package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lembra-labs/lembra-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/lembra-labs/lembra-cli/internal/core/domain"
	"github.com/lembra-labs/lembra-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage providing the ingestion ledger and
// the chunk store through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.lembra/data/lembra.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lembra", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "lembra.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ledger returns a Ledger interface backed by this store.
func (s *Store) Ledger() driven.Ledger {
	return &ledger{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Ledger ====================

// ledger implements driven.Ledger.
type ledger struct {
	store *Store
}

var _ driven.Ledger = (*ledger)(nil)

// Contains reports whether the given message ID has been ingested.
func (l *ledger) Contains(ctx context.Context, id int64) (bool, error) {
	var n int
	row := l.store.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM ledger WHERE message_id = ?", id)
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("querying ledger: %w", err)
	}
	return n > 0, nil
}

// Delta returns the subset of ids not present in the ledger, in input order.
// The committed set is read once; the corpus is small enough that loading
// it beats issuing one query per ID.
func (l *ledger) Delta(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := l.store.db.QueryContext(ctx, "SELECT message_id FROM ledger")
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	committed := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		committed[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger: %w", err)
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := committed[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Commit inserts the given IDs inside a single transaction, so a concurrent
// reader sees either none or all of them.
func (l *ledger) Commit(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning commit: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO ledger (message_id) VALUES (?)")
	if err != nil {
		return fmt.Errorf("preparing commit: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("committing message %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finishing commit: %w", err)
	}
	return nil
}

// Len returns the number of committed IDs.
func (l *ledger) Len(ctx context.Context) (int, error) {
	var n int
	row := l.store.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM ledger")
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting ledger: %w", err)
	}
	return n, nil
}

// Clear removes all committed IDs.
func (l *ledger) Clear(ctx context.Context) error {
	if _, err := l.store.db.ExecContext(ctx, "DELETE FROM ledger"); err != nil {
		return fmt.Errorf("clearing ledger: %w", err)
	}
	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// SaveChunk stores one chunk, overwriting any chunk with the same ID.
func (c *chunkStore) SaveChunk(ctx context.Context, chunk *domain.Chunk) error {
	if chunk == nil {
		return domain.ErrInvalidInput
	}

	idsJSON, err := json.Marshal(chunk.MessageIDs)
	if err != nil {
		return fmt.Errorf("marshalling message IDs: %w", err)
	}
	authorsJSON, err := json.Marshal(chunk.Authors)
	if err != nil {
		return fmt.Errorf("marshalling authors: %w", err)
	}

	_, err = c.store.db.ExecContext(ctx, `
		INSERT INTO chunks (id, message_ids, content, authors, start_time, end_time, embedding, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			message_ids = excluded.message_ids,
			content = excluded.content,
			authors = excluded.authors,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			embedding = excluded.embedding,
			source = excluded.source
	`, chunk.ID, string(idsJSON), chunk.Text, string(authorsJSON),
		chunk.StartTime.UTC(), chunk.EndTime.UTC(),
		encodeEmbedding(chunk.Embedding), chunk.Source)

	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// CountChunks returns the number of stored chunks.
func (c *chunkStore) CountChunks(ctx context.Context) (int, error) {
	var n int
	row := c.store.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM chunks")
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Reset removes all stored chunks.
func (c *chunkStore) Reset(ctx context.Context) error {
	if _, err := c.store.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("resetting chunks: %w", err)
	}
	return nil
}

// GetChunk retrieves a stored chunk by ID.
func (c *chunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := c.store.db.QueryRowContext(ctx, `
		SELECT id, message_ids, content, authors, start_time, end_time, embedding, source
		FROM chunks WHERE id = ?
	`, id)

	var chunk domain.Chunk
	var idsJSON, authorsJSON string
	var embedding []byte
	err := row.Scan(&chunk.ID, &idsJSON, &chunk.Text, &authorsJSON,
		&chunk.StartTime, &chunk.EndTime, &embedding, &chunk.Source)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying chunk: %w", err)
	}

	if err := json.Unmarshal([]byte(idsJSON), &chunk.MessageIDs); err != nil {
		return nil, fmt.Errorf("parsing message IDs: %w", err)
	}
	if err := json.Unmarshal([]byte(authorsJSON), &chunk.Authors); err != nil {
		return nil, fmt.Errorf("parsing authors: %w", err)
	}
	chunk.Embedding = decodeEmbedding(embedding)

	return &chunk, nil
}

// encodeEmbedding packs a float32 vector into little-endian bytes.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks little-endian bytes into a float32 vector.
func decodeEmbedding(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
