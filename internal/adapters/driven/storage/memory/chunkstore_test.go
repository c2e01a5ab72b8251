package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
)

func TestChunkStore_SaveAndCount(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	chunk := domain.Chunk{ID: "abc", Text: "oi", MessageIDs: []int64{1}}
	require.NoError(t, store.SaveChunk(ctx, &chunk))

	n, err := store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, ok := store.Get("abc")
	require.True(t, ok)
	assert.Equal(t, "oi", got.Text)
}

func TestChunkStore_SaveOverwritesSameID(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunk(ctx, &domain.Chunk{ID: "abc", Text: "velho"}))
	require.NoError(t, store.SaveChunk(ctx, &domain.Chunk{ID: "abc", Text: "novo"}))

	n, err := store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, ok := store.Get("abc")
	require.True(t, ok)
	assert.Equal(t, "novo", got.Text)
}

func TestChunkStore_SaveNilRejected(t *testing.T) {
	store := NewChunkStore()

	err := store.SaveChunk(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChunkStore_Reset(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunk(ctx, &domain.Chunk{ID: "abc"}))
	require.NoError(t, store.Reset(ctx))

	n, err := store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
