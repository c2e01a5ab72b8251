package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
)

// mockBatchIngestor implements driving.BatchIngestor for command tests.
type mockBatchIngestor struct {
	report     domain.IngestReport
	status     domain.IngestStatus
	runErr     error
	reindexErr error

	runCalled     bool
	reindexCalled bool
}

func (m *mockBatchIngestor) Run(_ context.Context) (domain.IngestReport, error) {
	m.runCalled = true
	return m.report, m.runErr
}

func (m *mockBatchIngestor) Reindex(_ context.Context) (domain.IngestReport, error) {
	m.reindexCalled = true
	return m.report, m.reindexErr
}

func (m *mockBatchIngestor) Status(_ context.Context) (domain.IngestStatus, error) {
	return m.status, nil
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestIngestCmd_PrintsReport(t *testing.T) {
	now := time.Now()
	mock := &mockBatchIngestor{
		report: domain.IngestReport{
			RunID:        "run-1",
			MessagesSeen: 120,
			NewMessages:  12,
			ChunksStored: 3,
			ChunksFailed: 1,
			StartedAt:    now,
			FinishedAt:   now.Add(2 * time.Second),
		},
	}
	oldIngestor := batchIngestor
	batchIngestor = mock
	defer func() { batchIngestor = oldIngestor }()

	out, err := execute(t, "ingest")

	assert.NoError(t, err)
	assert.True(t, mock.runCalled)
	assert.Contains(t, out, "Messages seen:  120")
	assert.Contains(t, out, "New messages:   12")
	assert.Contains(t, out, "Chunks stored:  3")
	assert.Contains(t, out, "Chunks failed:  1")
}

func TestIngestCmd_PropagatesError(t *testing.T) {
	oldIngestor := batchIngestor
	batchIngestor = &mockBatchIngestor{runErr: errors.New("corpus unreadable")}
	defer func() { batchIngestor = oldIngestor }()

	_, err := execute(t, "ingest")

	assert.ErrorContains(t, err, "corpus unreadable")
}

func TestStatusCmd_PrintsCounts(t *testing.T) {
	oldIngestor := batchIngestor
	batchIngestor = &mockBatchIngestor{
		status: domain.IngestStatus{ProcessedMessages: 450, StoredChunks: 37},
	}
	defer func() { batchIngestor = oldIngestor }()

	out, err := execute(t, "status")

	assert.NoError(t, err)
	assert.Contains(t, out, "Processed messages: 450")
	assert.Contains(t, out, "Stored chunks:      37")
}

func TestReindexCmd_ForceSkipsPrompt(t *testing.T) {
	mock := &mockBatchIngestor{report: domain.IngestReport{RunID: "run-2"}}
	oldIngestor := batchIngestor
	batchIngestor = mock
	defer func() { batchIngestor = oldIngestor }()

	_, err := execute(t, "reindex", "--force")

	assert.NoError(t, err)
	assert.True(t, mock.reindexCalled)
}
