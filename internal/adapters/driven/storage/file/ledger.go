// Package file provides a file-backed ingestion ledger. The committed
// message IDs live in a single JSON array (processed_ids.json), loaded fully
// on startup and rewritten atomically on every commit.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/lembra-labs/lembra-cli/internal/core/ports/driven"
)

// LedgerFileName is the ledger file inside the data directory.
const LedgerFileName = "processed_ids.json"

// Ensure Ledger implements the interface.
var _ driven.Ledger = (*Ledger)(nil)

// Ledger is a JSON-file-backed implementation of driven.Ledger.
// Commits rewrite the whole file through a rename, so a reader never
// observes a partial commit and a crash mid-write leaves the previous
// ledger intact.
type Ledger struct {
	mu   sync.RWMutex
	path string
	ids  map[int64]struct{}
}

// NewLedger opens (or creates) the ledger in the given data directory.
// The full ID set is loaded into memory; the corpus is bounded by a single
// chat's history, so this stays small.
func NewLedger(dataDir string) (*Ledger, error) {
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

	l := &Ledger{
		path: filepath.Join(dataDir, LedgerFileName),
		ids:  make(map[int64]struct{}),
	}

	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Contains reports whether the given message ID has been ingested.
func (l *Ledger) Contains(_ context.Context, id int64) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok, nil
}

// Delta returns the subset of ids not yet committed, preserving input order.
func (l *Ledger) Delta(_ context.Context, ids []int64) ([]int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var missing []int64
	for _, id := range ids {
		if _, ok := l.ids[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Commit persists the given IDs as processed. The in-memory set is updated
// only after the file write succeeds, so a failed persist never leaves
// readers believing the IDs were committed.
func (l *Ledger) Commit(_ context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make(map[int64]struct{}, len(l.ids)+len(ids))
	for id := range l.ids {
		merged[id] = struct{}{}
	}
	for _, id := range ids {
		merged[id] = struct{}{}
	}

	if err := l.persist(merged); err != nil {
		return err
	}
	l.ids = merged
	return nil
}

// Len returns the number of committed IDs.
func (l *Ledger) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids), nil
}

// Clear removes all committed IDs and deletes the ledger file.
func (l *Ledger) Clear(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing ledger file: %w", err)
	}
	l.ids = make(map[int64]struct{})
	return nil
}

// load reads the ledger file into memory. A missing file is an empty ledger.
func (l *Ledger) load() error {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading ledger file: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("parsing ledger file: %w", err)
	}

	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
	return nil
}

// persist writes the given ID set to a temporary file and renames it over
// the ledger. Caller holds l.mu.
func (l *Ledger) persist(ids map[int64]struct{}) error {
	sorted := make([]int64, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	data, err := json.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing ledger file: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing ledger file: %w", err)
	}
	return nil
}
