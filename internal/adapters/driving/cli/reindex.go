package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var flagReindexForce bool

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the chunk store from scratch",
	Long: `Clears the ledger and every stored chunk, then re-ingests the full
exported history. Use after changing the chunking or embedding configuration.`,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().BoolVarP(&flagReindexForce, "force", "f", false,
		"skip the confirmation prompt")
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if err := buildServices(); err != nil {
		return err
	}
	if batchIngestor == nil {
		return fmt.Errorf("reindex: %w", errNotConfigured)
	}

	if !flagReindexForce {
		cmd.Print("This deletes all stored chunks and re-ingests everything. Continue? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n') //nolint:errcheck // CLI prompt, empty answer aborts
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			cmd.Println("Aborted.")
			return nil
		}
	}

	ctx := context.Background()

	cmd.Println("Reindexing...")
	report, err := batchIngestor.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}
