package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
)

func newTestLiveBuffer(opts ...LiveBufferOption) (*LiveBuffer, *mockLedger, *mockChunkStore) {
	ledger := newMockLedger()
	store := newMockChunkStore()
	chunker := NewChunker(WithChunkSource(domain.ChunkSourceLive))
	buf := NewLiveBuffer(ledger, store, &mockEmbedder{}, chunker, opts...)
	return buf, ledger, store
}

func hasFlushSignal(b *LiveBuffer) bool {
	select {
	case <-b.flushCh:
		return true
	default:
		return false
	}
}

func TestLiveBufferAdd_BelowThresholdDoesNotSignal(t *testing.T) {
	buf, _, _ := newTestLiveBuffer(WithFlushCount(10))

	for i := int64(1); i < 10; i++ {
		buf.Add(testMsg(i, "Ana", chunkerEpoch.Add(time.Duration(i)*time.Second), "oi"))
	}

	assert.Equal(t, 9, buf.Pending())
	assert.False(t, hasFlushSignal(buf))
}

func TestLiveBufferAdd_CountThresholdSignals(t *testing.T) {
	buf, _, _ := newTestLiveBuffer(WithFlushCount(10))

	for i := int64(1); i <= 10; i++ {
		buf.Add(testMsg(i, "Ana", chunkerEpoch.Add(time.Duration(i)*time.Second), "oi"))
	}

	assert.Equal(t, 10, buf.Pending())
	assert.True(t, hasFlushSignal(buf))
}

func TestLiveBufferFlush_StoresAndCommits(t *testing.T) {
	buf, ledger, store := newTestLiveBuffer()
	buf.Add(testMsg(1, "Ana", chunkerEpoch, "oi"))
	buf.Add(testMsg(2, "Bruno", chunkerEpoch.Add(time.Minute), "oi"))

	err := buf.Flush(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, buf.Pending())
	assert.Equal(t, 1, store.count())
	assert.True(t, ledger.has(1))
	assert.True(t, ledger.has(2))
}

func TestLiveBufferFlush_EmptyBufferIsNoop(t *testing.T) {
	buf, _, store := newTestLiveBuffer()

	err := buf.Flush(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, store.count())
}

func TestLiveBufferFlush_FailedChunksAreNotRequeued(t *testing.T) {
	buf, ledger, store := newTestLiveBuffer()
	store.saveErr = errors.New("storage down")
	buf.Add(testMsg(1, "Ana", chunkerEpoch, "oi"))
	buf.Add(testMsg(2, "Bruno", chunkerEpoch.Add(time.Minute), "oi"))

	err := buf.Flush(context.Background())

	// A per-chunk storage failure is counted, not fatal, and the messages
	// are gone from the buffer.
	require.NoError(t, err)
	assert.Equal(t, 0, buf.Pending())
	assert.False(t, ledger.has(1))
	assert.False(t, ledger.has(2))

	// Nothing left to flush: the failed chunk belongs to the batch path now.
	store.saveErr = nil
	require.NoError(t, buf.Flush(context.Background()))
	assert.Equal(t, 0, store.count())
}

func TestLiveBufferFlush_LedgerFailureIsFatal(t *testing.T) {
	buf, ledger, _ := newTestLiveBuffer()
	ledger.deltaErr = errors.New("disk gone")
	buf.Add(testMsg(1, "Ana", chunkerEpoch, "oi"))

	err := buf.Flush(context.Background())

	assert.ErrorIs(t, err, domain.ErrLedger)
}

func TestLiveBufferFlush_TrailingContextJoinsConversation(t *testing.T) {
	buf, ledger, store := newTestLiveBuffer()
	buf.Add(testMsg(1, "Ana", chunkerEpoch, "oi"))
	buf.Add(testMsg(2, "Bruno", chunkerEpoch.Add(time.Minute), "oi"))
	require.NoError(t, buf.Flush(context.Background()))

	// The next message continues the same conversation.
	buf.Add(testMsg(3, "Ana", chunkerEpoch.Add(2*time.Minute), "e aí?"))
	require.NoError(t, buf.Flush(context.Background()))

	// The refreshed chunk spans the whole conversation.
	assert.Equal(t, 2, store.count())
	last := ledger.commits[len(ledger.commits)-1]
	assert.Equal(t, []int64{1, 2, 3}, last)
}

func TestLiveBufferAgeExceeded(t *testing.T) {
	buf, _, _ := newTestLiveBuffer(WithMaxAge(5 * time.Minute))
	now := chunkerEpoch
	buf.now = func() time.Time { return now }

	buf.Add(testMsg(1, "Ana", chunkerEpoch, "oi"))
	assert.False(t, buf.ageExceeded())

	now = now.Add(4 * time.Minute)
	assert.False(t, buf.ageExceeded())

	now = now.Add(time.Minute)
	assert.True(t, buf.ageExceeded())
}

func TestLiveBufferAgeExceeded_EmptyBuffer(t *testing.T) {
	buf, _, _ := newTestLiveBuffer(WithMaxAge(5 * time.Minute))
	buf.now = func() time.Time { return chunkerEpoch.Add(time.Hour) }

	assert.False(t, buf.ageExceeded())
}

// blockingStore gates SaveChunk so a flush can be held open mid-pipeline.
type blockingStore struct {
	*mockChunkStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) SaveChunk(ctx context.Context, chunk *domain.Chunk) error {
	close(b.entered)
	<-b.release
	return b.mockChunkStore.SaveChunk(ctx, chunk)
}

func TestLiveBufferAdd_DoesNotBlockDuringFlush(t *testing.T) {
	ledger := newMockLedger()
	store := &blockingStore{
		mockChunkStore: newMockChunkStore(),
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	buf := NewLiveBuffer(ledger, store, nil, NewChunker())
	buf.Add(testMsg(1, "Ana", chunkerEpoch, "oi"))

	flushDone := make(chan error, 1)
	go func() {
		flushDone <- buf.Flush(context.Background())
	}()
	<-store.entered

	// The flush is parked inside the storage call; arrivals must not wait.
	added := make(chan struct{})
	go func() {
		buf.Add(testMsg(2, "Bruno", chunkerEpoch.Add(time.Second), "oi"))
		close(added)
	}()

	select {
	case <-added:
	case <-time.After(time.Second):
		t.Fatal("Add blocked while a flush was in progress")
	}

	close(store.release)
	require.NoError(t, <-flushDone)
	assert.Equal(t, 1, buf.Pending())
}

func TestLiveBufferRun_FlushesOnCountSignal(t *testing.T) {
	buf, ledger, store := newTestLiveBuffer(WithFlushCount(3))

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- buf.Run(ctx)
	}()

	buf.Add(testMsg(1, "Ana", chunkerEpoch, "oi"))
	buf.Add(testMsg(2, "Bruno", chunkerEpoch.Add(time.Second), "oi"))
	buf.Add(testMsg(3, "Carla", chunkerEpoch.Add(2*time.Second), "oi"))

	assert.Eventually(t, func() bool {
		return store.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, ledger.has(3))

	cancel()
	assert.ErrorIs(t, <-runDone, context.Canceled)
}
