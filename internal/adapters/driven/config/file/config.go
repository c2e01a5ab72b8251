// Package file provides the TOML-backed configuration for the Lembra CLI.
// Configuration lives in ~/.lembra/config.toml by default; a missing file
// yields the defaults.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultGapMinutes     = 30
	DefaultMaxChunkChars  = 2000
	DefaultFlushCount     = 10
	DefaultMaxAgeMinutes  = 5
	DefaultTickSeconds    = 60
	DefaultEmbedBatchSize = 32
)

// Config is the full configuration surface of the tool.
type Config struct {
	Chunking  ChunkingConfig  `toml:"chunking"`
	Live      LiveConfig      `toml:"live"`
	Paths     PathsConfig     `toml:"paths"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Storage   StorageConfig   `toml:"storage"`
}

// ChunkingConfig controls the conversation chunker.
type ChunkingConfig struct {
	// GapMinutes is the temporal gap threshold for grouping, in minutes.
	GapMinutes int `toml:"gap_minutes"`

	// MaxChars is the maximum serialized characters per chunk.
	MaxChars int `toml:"max_chars"`
}

// LiveConfig controls the live buffer.
type LiveConfig struct {
	// FlushCount is the buffered-message count that triggers a flush.
	FlushCount int `toml:"flush_count"`

	// MaxAgeMinutes is the oldest-message age that triggers a flush.
	MaxAgeMinutes int `toml:"max_age_minutes"`

	// TickSeconds is the cadence of the periodic age check.
	TickSeconds int `toml:"tick_seconds"`
}

// PathsConfig locates the corpus and the data directory.
type PathsConfig struct {
	// ExportDir holds the parsed export files (.jsonl).
	ExportDir string `toml:"export_dir"`

	// SpoolFile is the live capture spool followed by the live command.
	SpoolFile string `toml:"spool_file"`

	// DataDir holds the ledger and the chunk database.
	DataDir string `toml:"data_dir"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai", "ollama" or "none".
	Provider string `toml:"provider"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`

	// BatchSize is how many chunk texts are embedded per call.
	BatchSize int `toml:"batch_size"`

	// RequestsPerSecond rate-limits embedding calls. Zero disables.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// Burst is the rate limiter burst size.
	Burst int `toml:"burst"`
}

// StorageConfig selects the ledger/chunk storage backend.
type StorageConfig struct {
	// Backend is "sqlite" (default) or "file" (JSON ledger, no chunk
	// persistence beyond the ledger - useful for dry runs).
	Backend string `toml:"backend"`
}

// GapThreshold returns the chunking gap as a duration.
func (c *Config) GapThreshold() time.Duration {
	return time.Duration(c.Chunking.GapMinutes) * time.Minute
}

// LiveMaxAge returns the live buffer age threshold as a duration.
func (c *Config) LiveMaxAge() time.Duration {
	return time.Duration(c.Live.MaxAgeMinutes) * time.Minute
}

// LiveTick returns the periodic age-check interval as a duration.
func (c *Config) LiveTick() time.Duration {
	return time.Duration(c.Live.TickSeconds) * time.Second
}

// Default returns the default configuration rooted at the given config
// directory (empty means ~/.lembra).
func Default(configDir string) (*Config, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".lembra")
	}

	return &Config{
		Chunking: ChunkingConfig{
			GapMinutes: DefaultGapMinutes,
			MaxChars:   DefaultMaxChunkChars,
		},
		Live: LiveConfig{
			FlushCount:    DefaultFlushCount,
			MaxAgeMinutes: DefaultMaxAgeMinutes,
			TickSeconds:   DefaultTickSeconds,
		},
		Paths: PathsConfig{
			ExportDir: filepath.Join(configDir, "export"),
			SpoolFile: filepath.Join(configDir, "spool", "live.jsonl"),
			DataDir:   filepath.Join(configDir, "data"),
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: DefaultEmbedBatchSize,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
		},
	}, nil
}

// Store loads and saves the configuration file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a config store. If configDir is empty, defaults to
// ~/.lembra.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".lembra")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	return &Store{
		path: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Path returns the config file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the configuration, applying defaults for missing values.
// A missing file returns the defaults without error.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := Default(filepath.Dir(s.path))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to disk.
func (s *Store) Save(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
