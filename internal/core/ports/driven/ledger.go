package driven

import "context"

// Ledger is the durable record of which message IDs have already been
// incorporated into a stored chunk. A message ID is committed only after the
// embedding+storage step for its chunk succeeds; the commit is the
// durability boundary.
//
// Implementations load the full set into memory on startup. The corpus is
// bounded by a single chat's history, so this stays small.
type Ledger interface {
	// Contains reports whether the given message ID has been ingested.
	Contains(ctx context.Context, id int64) (bool, error)

	// Delta returns the subset of ids not yet committed, preserving input
	// order. An ID smaller than already-committed ones is still returned if
	// absent: re-exports can backfill earlier history.
	Delta(ctx context.Context, ids []int64) ([]int64, error)

	// Commit persists the given IDs as processed, atomically with respect to
	// concurrent readers. Committing an already-present ID is a no-op, so
	// concurrent commits of disjoint sets union-merge safely.
	Commit(ctx context.Context, ids []int64) error

	// Len returns the number of committed IDs.
	Len(ctx context.Context) (int, error)

	// Clear removes all committed IDs. Used only by the explicit full
	// reindex operation, which also invalidates all stored chunks.
	Clear(ctx context.Context) error
}
