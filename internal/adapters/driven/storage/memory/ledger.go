// Package memory provides in-memory implementations of the storage ports.
// They back the service tests and the dry-run mode; nothing survives a
// process restart.
package memory

import (
	"context"
	"sync"

	"github.com/lembra-labs/lembra-cli/internal/core/ports/driven"
)

// Ensure Ledger implements the interface.
var _ driven.Ledger = (*Ledger)(nil)

// Ledger is an in-memory implementation of driven.Ledger.
type Ledger struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewLedger creates a new in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		ids: make(map[int64]struct{}),
	}
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

// Commit persists the given IDs as processed.
func (l *Ledger) Commit(_ context.Context, ids []int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
	return nil
}

// Len returns the number of committed IDs.
func (l *Ledger) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids), nil
}

// Clear removes all committed IDs.
func (l *Ledger) Clear(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = make(map[int64]struct{})
	return nil
}
