package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
	"github.com/lembra-labs/lembra-cli/internal/core/ports/driven"
	"github.com/lembra-labs/lembra-cli/internal/core/ports/driving"
	"github.com/lembra-labs/lembra-cli/internal/logger"
)

// Live buffer defaults.
const (
	// DefaultFlushCount is the buffered-message count that triggers a flush.
	DefaultFlushCount = 10

	// DefaultMaxAge is how old the oldest buffered message may get before a
	// flush is triggered regardless of count.
	DefaultMaxAge = 5 * time.Minute

	// DefaultTickInterval is the cadence of the age check. Count alone
	// cannot trigger a flush for a slow trickle of messages.
	DefaultTickInterval = time.Minute

	// maxTailMessages caps the in-memory trailing context kept between
	// flushes.
	maxTailMessages = 50
)

// Ensure LiveBuffer implements the interface.
var _ driving.LiveIngestor = (*LiveBuffer)(nil)

// LiveBuffer accumulates live messages and flushes them through the chunking
// pipeline when either the count threshold or the age threshold is reached.
//
// The buffer is in-memory only. A crash before a flush loses at most one
// buffer's worth of messages from this fast path; those messages remain in
// the durable export corpus and the next batch ingestion run reconciles them
// via the ledger delta. That bound is a guarantee, not a bug.
type LiveBuffer struct {
	ledger   driven.Ledger
	store    driven.ChunkStore
	embedder driven.EmbeddingService
	chunker  *Chunker

	flushCount   int
	maxAge       time.Duration
	tickInterval time.Duration

	// mu guards only the buffer state: append versus snapshot-and-reset.
	// It is never held across the embedding/storage call, so arrivals stay
	// responsive while a flush is outstanding.
	mu       sync.Mutex
	pending  []domain.Message
	oldestAt time.Time
	tail     []domain.Message

	flushCh chan struct{}
	now     func() time.Time
}

// LiveBufferOption configures the live buffer.
type LiveBufferOption func(*LiveBuffer)

// WithFlushCount sets the count threshold that triggers a flush.
func WithFlushCount(n int) LiveBufferOption {
	return func(b *LiveBuffer) {
		if n > 0 {
			b.flushCount = n
		}
	}
}

// WithMaxAge sets the age threshold that triggers a flush.
func WithMaxAge(d time.Duration) LiveBufferOption {
	return func(b *LiveBuffer) {
		if d > 0 {
			b.maxAge = d
		}
	}
}

// WithTickInterval sets the cadence of the periodic age check.
func WithTickInterval(d time.Duration) LiveBufferOption {
	return func(b *LiveBuffer) {
		if d > 0 {
			b.tickInterval = d
		}
	}
}

// NewLiveBuffer creates a live buffer flushing into the given collaborators.
// The embedder is optional - when nil, chunks are stored without vectors.
func NewLiveBuffer(
	ledger driven.Ledger,
	store driven.ChunkStore,
	embedder driven.EmbeddingService,
	chunker *Chunker,
	opts ...LiveBufferOption,
) *LiveBuffer {
	b := &LiveBuffer{
		ledger:       ledger,
		store:        store,
		embedder:     embedder,
		chunker:      chunker,
		flushCount:   DefaultFlushCount,
		maxAge:       DefaultMaxAge,
		tickInterval: DefaultTickInterval,
		flushCh:      make(chan struct{}, 1),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add buffers one message. It only takes the buffer lock, never waits on an
// in-progress flush; messages arriving during a flush start the next cycle.
func (b *LiveBuffer) Add(msg domain.Message) {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.oldestAt = b.now()
	}
	b.pending = append(b.pending, msg)
	reached := len(b.pending) >= b.flushCount
	b.mu.Unlock()

	if reached {
		select {
		case b.flushCh <- struct{}{}:
		default: // a flush signal is already queued
		}
	}
}

// Pending returns the number of buffered, unflushed messages.
func (b *LiveBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Run drives the flush loop until the context is cancelled. Count-triggered
// and age-triggered flushes both execute here, so the arrival path never
// runs the pipeline itself.
func (b *LiveBuffer) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.tickInterval)
	defer ticker.Stop()

	logger.Info("Live buffer running: count threshold %d, max age %s",
		b.flushCount, b.maxAge)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-b.flushCh:
			if err := b.Flush(ctx); err != nil {
				logger.Warn("Live flush failed: %v", err)
			}

		case <-ticker.C:
			if !b.ageExceeded() {
				continue
			}
			if err := b.Flush(ctx); err != nil {
				logger.Warn("Periodic live flush failed: %v", err)
			}
		}
	}
}

// ageExceeded reports whether the oldest buffered message is past the age
// threshold.
func (b *LiveBuffer) ageExceeded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return false
	}
	return b.now().Sub(b.oldestAt) >= b.maxAge
}

// Flush snapshots the buffer and pushes the messages through the chunking
// pipeline. Failed chunks are not re-queued - repeated failure would
// duplicate messages without bound. The durable corpus still holds them, so
// the next batch run picks up the gap via the ledger delta.
func (b *LiveBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	messages := b.pending
	b.pending = nil
	b.oldestAt = time.Time{}
	trailing := b.contextTailLocked(messages)
	b.mu.Unlock()

	if len(messages) == 0 {
		return nil
	}

	logger.Info("Flushing live buffer: %d messages", len(messages))

	working := domain.MergeMessages(trailing, messages)
	chunks, err := b.chunker.Split(working)
	if err != nil {
		b.rememberTail(messages)
		return fmt.Errorf("chunk live batch: %w", err)
	}

	stored, failed := 0, 0
	for i := range chunks {
		chunk := chunks[i]

		if err := ctx.Err(); err != nil {
			b.rememberTail(messages)
			return err
		}

		// Chunks made purely of trailing context are already stored.
		delta, err := b.ledger.Delta(ctx, chunk.MessageIDs)
		if err != nil {
			b.rememberTail(messages)
			return fmt.Errorf("%w: delta: %w", domain.ErrLedger, err)
		}
		if len(delta) == 0 {
			continue
		}

		if b.embedder != nil {
			embedding, err := b.embedder.Embed(ctx, chunk.Text)
			if err != nil {
				logger.Warn("Embedding failed for live chunk %s: %v", chunk.ID, err)
				failed++
				continue
			}
			chunk.Embedding = embedding
		}

		if err := b.store.SaveChunk(ctx, &chunk); err != nil {
			logger.Warn("Failed to store live chunk %s: %v", chunk.ID, err)
			failed++
			continue
		}

		if err := b.ledger.Commit(ctx, chunk.MessageIDs); err != nil {
			b.rememberTail(messages)
			return fmt.Errorf("%w: commit: %w", domain.ErrLedger, err)
		}
		stored++
	}

	b.rememberTail(messages)
	logger.Info("Live flush complete: %d chunks stored, %d failed", stored, failed)
	return nil
}

// contextTailLocked returns the retained trailing context relevant to the
// first buffered message. Caller holds b.mu.
func (b *LiveBuffer) contextTailLocked(messages []domain.Message) []domain.Message {
	if len(messages) == 0 || len(b.tail) == 0 {
		return nil
	}
	cutoff := messages[0].Timestamp.Add(-b.chunker.GapThreshold())
	start := len(b.tail)
	for start > 0 && !b.tail[start-1].Timestamp.Before(cutoff) {
		start--
	}
	return append([]domain.Message(nil), b.tail[start:]...)
}

// rememberTail retains the most recent flushed messages as trailing context
// for the next flush, bounded by the gap window and a hard cap. The tail is
// kept even when the flush failed: those messages will not be retried on
// this path.
func (b *LiveBuffer) rememberTail(messages []domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tail = append(b.tail, messages...)
	if len(b.tail) > maxTailMessages {
		b.tail = b.tail[len(b.tail)-maxTailMessages:]
	}
	last := b.tail[len(b.tail)-1]
	cutoff := last.Timestamp.Add(-b.chunker.GapThreshold())
	start := 0
	for start < len(b.tail) && b.tail[start].Timestamp.Before(cutoff) {
		start++
	}
	if start > 0 {
		b.tail = append([]domain.Message(nil), b.tail[start:]...)
	}
}
