package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoad_MissingFileYieldsDefaults(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	cfg, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.GapThreshold())
	assert.Equal(t, DefaultMaxChunkChars, cfg.Chunking.MaxChars)
	assert.Equal(t, DefaultFlushCount, cfg.Live.FlushCount)
	assert.Equal(t, 5*time.Minute, cfg.LiveMaxAge())
	assert.Equal(t, time.Minute, cfg.LiveTick())
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
}

func TestStoreSaveLoad_RoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	cfg, err := store.Load()
	require.NoError(t, err)
	cfg.Chunking.GapMinutes = 15
	cfg.Live.FlushCount = 25
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.RequestsPerSecond = 2.5
	require.NoError(t, store.Save(cfg))

	loaded, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, loaded.GapThreshold())
	assert.Equal(t, 25, loaded.Live.FlushCount)
	assert.Equal(t, "openai", loaded.Embedding.Provider)
	assert.InDelta(t, 2.5, loaded.Embedding.RequestsPerSecond, 0.001)
}

func TestStoreLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := "[chunking]\ngap_minutes = 10\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewStore(dir)
	require.NoError(t, err)
	cfg, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.GapThreshold())
	assert.Equal(t, DefaultMaxChunkChars, cfg.Chunking.MaxChars)
	assert.Equal(t, DefaultFlushCount, cfg.Live.FlushCount)
}

func TestStoreLoad_InvalidTOMLRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [toml"), 0600))

	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Load()
	assert.Error(t, err)
}
