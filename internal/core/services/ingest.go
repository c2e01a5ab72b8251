package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
	"github.com/lembra-labs/lembra-cli/internal/core/ports/driven"
	"github.com/lembra-labs/lembra-cli/internal/core/ports/driving"
	"github.com/lembra-labs/lembra-cli/internal/logger"
)

// DefaultEmbedBatchSize is how many chunk texts are embedded per API call.
const DefaultEmbedBatchSize = 32

// Ensure Ingestor implements the interface.
var _ driving.BatchIngestor = (*Ingestor)(nil)

// Ingestor is the batch ingestion driver: corpus -> ledger delta -> chunks ->
// embed -> store -> commit. A chunk's member IDs are committed only as a
// whole, after its storage call fully succeeds.
type Ingestor struct {
	source   driven.MessageSource
	ledger   driven.Ledger
	store    driven.ChunkStore
	embedder driven.EmbeddingService
	chunker  *Chunker

	embedBatchSize int

	mu      sync.Mutex
	running bool
}

// IngestorOption configures the ingestor.
type IngestorOption func(*Ingestor)

// WithEmbedBatchSize sets how many texts are embedded per batch call.
func WithEmbedBatchSize(n int) IngestorOption {
	return func(g *Ingestor) {
		if n > 0 {
			g.embedBatchSize = n
		}
	}
}

// NewIngestor creates a batch ingestion driver. The embedder is optional -
// when nil, chunks are stored without vectors.
func NewIngestor(
	source driven.MessageSource,
	ledger driven.Ledger,
	store driven.ChunkStore,
	embedder driven.EmbeddingService,
	chunker *Chunker,
	opts ...IngestorOption,
) *Ingestor {
	g := &Ingestor{
		source:         source,
		ledger:         ledger,
		store:          store,
		embedder:       embedder,
		chunker:        chunker,
		embedBatchSize: DefaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run executes one batch ingestion pass.
func (g *Ingestor) Run(ctx context.Context) (domain.IngestReport, error) {
	report := domain.IngestReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	if err := g.acquire(); err != nil {
		return report, err
	}
	defer g.release()

	// 1. Load the full corpus. The source merges export files and
	// de-duplicates by ID.
	messages, err := g.source.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("load corpus: %w", err)
	}
	report.MessagesSeen = len(messages)
	logger.Info("Loaded %d messages from corpus", len(messages))

	// 2. Compute the ledger delta. Ledger failures are fatal: proceeding on
	// unreadable ledger state risks duplicate storage.
	delta, err := g.ledger.Delta(ctx, domain.MessageIDs(messages))
	if err != nil {
		return report, fmt.Errorf("%w: delta: %w", domain.ErrLedger, err)
	}
	report.NewMessages = len(delta)
	if len(delta) == 0 {
		logger.Info("No new messages to process")
		report.FinishedAt = time.Now()
		return report, nil
	}
	logger.Info("%d new messages to process", len(delta))

	// 3. Chunk the delta plus trailing context, so a conversation boundary
	// is not re-opened incorrectly for the first new message.
	newSet := make(map[int64]struct{}, len(delta))
	for _, id := range delta {
		newSet[id] = struct{}{}
	}
	working := trailingContext(messages, newSet, g.chunker.GapThreshold())

	chunks, err := g.chunker.Split(working)
	if err != nil {
		return report, fmt.Errorf("chunk messages: %w", err)
	}

	// 4. Drop chunks whose members are all already committed; those exist
	// purely because of the trailing context.
	pending := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if containsAny(chunk.MessageIDs, newSet) {
			pending = append(pending, chunk)
		} else {
			report.ChunksSkipped++
		}
	}
	logger.Info("Created %d chunks (%d already stored)", len(pending), report.ChunksSkipped)

	// 5. Embed, store and commit, batch by batch.
	if err := g.storeChunks(ctx, pending, &report); err != nil {
		return report, err
	}

	logger.Info("Ingestion complete: %d chunks stored, %d failed, %d skipped",
		report.ChunksStored, report.ChunksFailed, report.ChunksSkipped)
	report.FinishedAt = time.Now()
	return report, nil
}

// storeChunks embeds and stores the chunks, committing each chunk's member
// IDs on success. A failure affects only its own chunk (or, for a failed
// embedding call, its own batch); processing continues.
func (g *Ingestor) storeChunks(ctx context.Context, chunks []domain.Chunk, report *domain.IngestReport) error {
	for start := 0; start < len(chunks); start += g.embedBatchSize {
		end := start + g.embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := ctx.Err(); err != nil {
			return err
		}

		var embeddings [][]float32
		if g.embedder != nil {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			var err error
			embeddings, err = g.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				logger.Warn("Embedding batch failed (%d chunks): %v", len(batch), err)
				report.ChunksFailed += len(batch)
				continue
			}
		}

		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}

			chunk := batch[i]
			if embeddings != nil {
				chunk.Embedding = embeddings[i]
			}

			if err := g.store.SaveChunk(ctx, &chunk); err != nil {
				logger.Warn("Failed to store chunk %s: %v", chunk.ID, err)
				report.ChunksFailed++
				continue
			}

			if err := g.ledger.Commit(ctx, chunk.MessageIDs); err != nil {
				return fmt.Errorf("%w: commit: %w", domain.ErrLedger, err)
			}
			report.ChunksStored++
		}
	}
	return nil
}

// Reindex clears the ledger and the chunk store, then re-ingests everything.
// The ledger is cleared first: if the process dies between the two clears,
// a plain Run re-stores every chunk (deterministic IDs make that an
// overwrite), whereas the reverse order could leave the corpus unreachable.
func (g *Ingestor) Reindex(ctx context.Context) (domain.IngestReport, error) {
	logger.Section("Reindex")
	if err := g.ledger.Clear(ctx); err != nil {
		return domain.IngestReport{}, fmt.Errorf("%w: clear: %w", domain.ErrLedger, err)
	}
	if err := g.store.Reset(ctx); err != nil {
		return domain.IngestReport{}, fmt.Errorf("reset chunk store: %w", err)
	}
	return g.Run(ctx)
}

// Status reports the durable ledger and store state.
func (g *Ingestor) Status(ctx context.Context) (domain.IngestStatus, error) {
	processed, err := g.ledger.Len(ctx)
	if err != nil {
		return domain.IngestStatus{}, fmt.Errorf("%w: len: %w", domain.ErrLedger, err)
	}
	stored, err := g.store.CountChunks(ctx)
	if err != nil {
		return domain.IngestStatus{}, fmt.Errorf("count chunks: %w", err)
	}
	return domain.IngestStatus{
		ProcessedMessages: processed,
		StoredChunks:      stored,
	}, nil
}

func (g *Ingestor) acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return domain.ErrIngestInProgress
	}
	g.running = true
	return nil
}

func (g *Ingestor) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = false
}

// trailingContext selects the working set for chunking: every message in the
// delta, plus already-committed messages within the context window
// immediately preceding each run of new messages. The window equals the
// temporal-gap threshold - never narrower, or a conversation boundary could
// be re-derived incorrectly.
func trailingContext(all []domain.Message, delta map[int64]struct{}, window time.Duration) []domain.Message {
	include := make([]bool, len(all))
	for i, m := range all {
		if _, ok := delta[m.ID]; ok {
			include[i] = true
		}
	}

	for i, m := range all {
		if !include[i] {
			continue
		}
		if i > 0 && include[i-1] {
			continue // not the start of a run
		}
		cutoff := m.Timestamp.Add(-window)
		for j := i - 1; j >= 0 && !include[j]; j-- {
			if all[j].Timestamp.Before(cutoff) {
				break
			}
			include[j] = true
		}
	}

	working := make([]domain.Message, 0, len(all))
	for i, m := range all {
		if include[i] {
			working = append(working, m)
		}
	}
	return working
}

// containsAny reports whether any of ids is present in set.
func containsAny(ids []int64, set map[int64]struct{}) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
