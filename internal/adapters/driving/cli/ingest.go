package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest new messages from the export directory",
	Long: `Loads the exported history, chunks messages not yet in the ledger,
embeds the chunks and stores them. Already-processed messages are skipped,
so repeated runs only pick up what is new.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if err := buildServices(); err != nil {
		return err
	}
	if batchIngestor == nil {
		return fmt.Errorf("ingest: %w", errNotConfigured)
	}

	ctx := context.Background()

	cmd.Println("Ingesting exported history...")
	report, err := batchIngestor.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}

// printReport writes one ingestion report in the shared format used by the
// ingest and reindex commands.
func printReport(cmd *cobra.Command, report domain.IngestReport) {
	cmd.Printf("Run %s finished in %s\n",
		report.RunID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	cmd.Printf("  Messages seen:  %d\n", report.MessagesSeen)
	cmd.Printf("  New messages:   %d\n", report.NewMessages)
	cmd.Printf("  Chunks stored:  %d\n", report.ChunksStored)
	if report.ChunksFailed > 0 {
		cmd.Printf("  Chunks failed:  %d (will retry on next run)\n", report.ChunksFailed)
	}
	if report.ChunksSkipped > 0 {
		cmd.Printf("  Chunks skipped: %d (already stored)\n", report.ChunksSkipped)
	}
}
