// Package cli implements the command-line interface. Commands talk to the
// core through the driving ports; the concrete services are wired in
// buildServices the first time a command runs.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configfile "github.com/lembra-labs/lembra-cli/internal/adapters/driven/config/file"
	"github.com/lembra-labs/lembra-cli/internal/adapters/driven/corpus/jsonl"
	"github.com/lembra-labs/lembra-cli/internal/adapters/driven/embedding/ollama"
	"github.com/lembra-labs/lembra-cli/internal/adapters/driven/embedding/openai"
	"github.com/lembra-labs/lembra-cli/internal/adapters/driven/embedding/ratelimit"
	filestorage "github.com/lembra-labs/lembra-cli/internal/adapters/driven/storage/file"
	"github.com/lembra-labs/lembra-cli/internal/adapters/driven/storage/memory"
	"github.com/lembra-labs/lembra-cli/internal/adapters/driven/storage/sqlite"
	"github.com/lembra-labs/lembra-cli/internal/core/domain"
	"github.com/lembra-labs/lembra-cli/internal/core/ports/driven"
	"github.com/lembra-labs/lembra-cli/internal/core/ports/driving"
	"github.com/lembra-labs/lembra-cli/internal/core/services"
	"github.com/lembra-labs/lembra-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services used by the commands. Wired by buildServices; tests swap them for
// mocks.
var (
	batchIngestor driving.BatchIngestor
	liveIngestor  driving.LiveIngestor
	liveTail      driven.MessageTail
	appConfig     *configfile.Config
)

// cleanups holds teardown functions registered during wiring, run after the
// command finishes.
var cleanups []func()

var (
	flagVerbose   bool
	flagConfigDir string
)

var rootCmd = &cobra.Command{
	Use:   "lembra",
	Short: "Chat history ingestion for retrieval",
	Long: `Lembra ingests chat history into an embedded vector store.

Exported history is chunked into conversation windows, embedded, and stored
for retrieval. A ledger of processed message IDs makes repeated runs
incremental, and the live command keeps the store current as new messages
arrive.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "",
		"configuration directory (default ~/.lembra)")
}

// Execute runs the root command.
func Execute() error {
	defer runCleanups()
	return rootCmd.Execute()
}

func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// buildServices wires the adapters and core services from configuration.
// Tests inject mocks beforehand, in which case this is a no-op.
func buildServices() error {
	if batchIngestor != nil {
		return nil
	}

	store, err := configfile.NewStore(flagConfigDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	cfg, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	appConfig = cfg

	ledger, chunkStore, err := buildStorage(cfg)
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	chunker := services.NewChunker(
		services.WithGapThreshold(cfg.GapThreshold()),
		services.WithMaxChars(cfg.Chunking.MaxChars),
	)

	batchIngestor = services.NewIngestor(
		jsonl.NewSource(cfg.Paths.ExportDir),
		ledger, chunkStore, embedder, chunker,
		services.WithEmbedBatchSize(cfg.Embedding.BatchSize),
	)

	liveChunker := services.NewChunker(
		services.WithGapThreshold(cfg.GapThreshold()),
		services.WithMaxChars(cfg.Chunking.MaxChars),
		services.WithChunkSource(domain.ChunkSourceLive),
	)
	liveIngestor = services.NewLiveBuffer(
		ledger, chunkStore, embedder, liveChunker,
		services.WithFlushCount(cfg.Live.FlushCount),
		services.WithMaxAge(cfg.LiveMaxAge()),
		services.WithTickInterval(cfg.LiveTick()),
	)
	liveTail = jsonl.NewTailer(cfg.Paths.SpoolFile)

	return nil
}

// buildStorage opens the configured storage backend and returns the ledger
// and chunk store.
func buildStorage(cfg *configfile.Config) (driven.Ledger, driven.ChunkStore, error) {
	switch cfg.Storage.Backend {
	case "", "sqlite":
		db, err := sqlite.NewStore(cfg.Paths.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		cleanups = append(cleanups, func() {
			if err := db.Close(); err != nil {
				logger.Warn("Closing database: %v", err)
			}
		})
		return db.Ledger(), db.ChunkStore(), nil

	case "file":
		ledger, err := filestorage.NewLedger(cfg.Paths.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening ledger: %w", err)
		}
		// The file backend persists only the ledger. Chunks go to a
		// throwaway in-memory store, which makes it a dry-run mode.
		return ledger, memory.NewChunkStore(), nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// buildEmbedder creates the configured embedding service, wrapped with a
// rate limiter when a request budget is set. Returns nil for provider "none".
func buildEmbedder(cfg *configfile.Config) (driven.EmbeddingService, error) {
	var svc driven.EmbeddingService

	switch cfg.Embedding.Provider {
	case "none":
		return nil, nil

	case "", "ollama":
		svc = ollama.NewEmbeddingService(ollama.Config{
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})

	case "openai":
		keyEnv := cfg.Embedding.APIKeyEnv
		if keyEnv == "" {
			keyEnv = "OPENAI_API_KEY"
		}
		apiKey := os.Getenv(keyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("embedding provider openai: %s is not set", keyEnv)
		}
		var err error
		svc, err = openai.NewEmbeddingService(openai.Config{
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
			APIKey:  apiKey,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding provider openai: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	if cfg.Embedding.RequestsPerSecond > 0 {
		svc = ratelimit.Wrap(svc, cfg.Embedding.RequestsPerSecond, cfg.Embedding.Burst)
	}
	cleanups = append(cleanups, func() {
		if err := svc.Close(); err != nil {
			logger.Warn("Closing embedding service: %v", err)
		}
	})
	return svc, nil
}

// errNotConfigured is returned when a command runs before wiring succeeded.
var errNotConfigured = errors.New("service not configured")
