package services

import (
	"context"
	"errors"
	"sync"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
	"github.com/lembra-labs/lembra-cli/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockSource implements driven.MessageSource over a fixed slice.
type mockSource struct {
	messages []domain.Message
	loadErr  error
}

func (m *mockSource) Load(_ context.Context) ([]domain.Message, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.messages, nil
}

// mockLedger implements driven.Ledger in memory.
type mockLedger struct {
	mu        sync.Mutex
	committed map[int64]struct{}
	commits   [][]int64

	deltaErr  error
	commitErr error
	clearErr  error
}

func newMockLedger() *mockLedger {
	return &mockLedger{committed: make(map[int64]struct{})}
}

func (m *mockLedger) Contains(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.committed[id]
	return ok, nil
}

func (m *mockLedger) Delta(_ context.Context, ids []int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deltaErr != nil {
		return nil, m.deltaErr
	}
	var delta []int64
	for _, id := range ids {
		if _, ok := m.committed[id]; !ok {
			delta = append(delta, id)
		}
	}
	return delta, nil
}

func (m *mockLedger) Commit(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	for _, id := range ids {
		m.committed[id] = struct{}{}
	}
	m.commits = append(m.commits, append([]int64(nil), ids...))
	return nil
}

func (m *mockLedger) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed), nil
}

func (m *mockLedger) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.committed = make(map[int64]struct{})
	return nil
}

func (m *mockLedger) has(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.committed[id]
	return ok
}

// errMockSave is returned by mockChunkStore for selectively failed saves.
var errMockSave = errors.New("mock save failure")

// mockChunkStore implements driven.ChunkStore in memory. Setting failMsgID
// makes SaveChunk fail for any chunk containing that message.
type mockChunkStore struct {
	mu        sync.Mutex
	chunks    map[string]domain.Chunk
	saves     int
	failMsgID int64
	saveErr   error
	resetErr  error
}

func newMockChunkStore() *mockChunkStore {
	return &mockChunkStore{chunks: make(map[string]domain.Chunk)}
}

func (m *mockChunkStore) SaveChunk(_ context.Context, chunk *domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.failMsgID != 0 {
		for _, id := range chunk.MessageIDs {
			if id == m.failMsgID {
				return errMockSave
			}
		}
	}
	m.saves++
	m.chunks[chunk.ID] = *chunk
	return nil
}

func (m *mockChunkStore) CountChunks(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks), nil
}

func (m *mockChunkStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetErr != nil {
		return m.resetErr
	}
	m.chunks = make(map[string]domain.Chunk)
	return nil
}

func (m *mockChunkStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}

// mockEmbedder implements driven.EmbeddingService with fixed-size vectors.
type mockEmbedder struct {
	mu       sync.Mutex
	calls    int
	embedErr error
	batchErr error
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return []float32{float32(len(text)), 1}, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return 2 }

func (m *mockEmbedder) ModelName() string { return "mock-embed" }

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }

func (m *mockEmbedder) Close() error { return nil }
