package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	configfile "github.com/lembra-labs/lembra-cli/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Prints the configuration in effect, merging the config file with the
defaults. Run 'lembra config init' to write a config file to edit.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current configuration to the config file",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	store, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cmd.Println("Configuration")
	cmd.Println("=============")
	cmd.Printf("  File: %s\n", store.Path())
	cmd.Println()
	cmd.Println("[Chunking]")
	cmd.Printf("  Gap threshold: %s\n", cfg.GapThreshold())
	cmd.Printf("  Max chars:     %d\n", cfg.Chunking.MaxChars)
	cmd.Println()
	cmd.Println("[Live]")
	cmd.Printf("  Flush count: %d\n", cfg.Live.FlushCount)
	cmd.Printf("  Max age:     %s\n", cfg.LiveMaxAge())
	cmd.Printf("  Tick:        %s\n", cfg.LiveTick())
	cmd.Println()
	cmd.Println("[Paths]")
	cmd.Printf("  Export dir: %s\n", cfg.Paths.ExportDir)
	cmd.Printf("  Spool file: %s\n", cfg.Paths.SpoolFile)
	cmd.Printf("  Data dir:   %s\n", cfg.Paths.DataDir)
	cmd.Println()
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider:   %s\n", cfg.Embedding.Provider)
	if cfg.Embedding.Model != "" {
		cmd.Printf("  Model:      %s\n", cfg.Embedding.Model)
	}
	if cfg.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL:   %s\n", cfg.Embedding.BaseURL)
	}
	cmd.Printf("  Batch size: %d\n", cfg.Embedding.BatchSize)
	if cfg.Embedding.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %.1f req/s (burst %d)\n",
			cfg.Embedding.RequestsPerSecond, cfg.Embedding.Burst)
	}
	cmd.Println()
	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", cfg.Storage.Backend)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	store, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := store.Save(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	cmd.Printf("Wrote %s\n", store.Path())
	return nil
}

func loadConfig() (*configfile.Store, *configfile.Config, error) {
	store, err := configfile.NewStore(flagConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening config: %w", err)
	}
	cfg, err := store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return store, cfg, nil
}
