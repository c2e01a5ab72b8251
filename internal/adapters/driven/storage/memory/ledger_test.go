package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_DeltaPreservesOrder(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Commit(ctx, []int64{1, 2, 3, 4, 5, 6, 7}))

	delta, err := ledger.Delta(ctx, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	require.NoError(t, err)
	assert.Equal(t, []int64{8, 9, 10}, delta)
}

func TestLedger_DeltaReturnsBackfilledIDs(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Commit(ctx, []int64{100, 101}))

	// A re-export surfaced earlier history.
	delta, err := ledger.Delta(ctx, []int64{50, 100, 101})

	require.NoError(t, err)
	assert.Equal(t, []int64{50}, delta)
}

func TestLedger_CommitIsIdempotent(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Commit(ctx, []int64{1, 2}))
	require.NoError(t, ledger.Commit(ctx, []int64{2, 3}))

	n, err := ledger.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLedger_Contains(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Commit(ctx, []int64{42}))

	ok, err := ledger.Contains(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.Contains(ctx, 43)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_Clear(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Commit(ctx, []int64{1, 2, 3}))
	require.NoError(t, ledger.Clear(ctx))

	n, err := ledger.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
