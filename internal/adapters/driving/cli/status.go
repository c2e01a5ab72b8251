package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger and chunk store state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := buildServices(); err != nil {
		return err
	}
	if batchIngestor == nil {
		return fmt.Errorf("status: %w", errNotConfigured)
	}

	status, err := batchIngestor.Status(context.Background())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	cmd.Println("Ingestion Status")
	cmd.Println("================")
	cmd.Printf("  Processed messages: %d\n", status.ProcessedMessages)
	cmd.Printf("  Stored chunks:      %d\n", status.StoredChunks)
	return nil
}
