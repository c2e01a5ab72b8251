package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lembra-labs/lembra-cli/internal/logger"
)

// finalFlushTimeout bounds the drain of buffered messages on shutdown.
const finalFlushTimeout = 30 * time.Second

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Ingest messages as they arrive",
	Long: `Follows the live capture spool and ingests new messages continuously.
Messages are buffered and flushed through the chunking pipeline when enough
have accumulated or the oldest has waited long enough. Stop with Ctrl-C;
buffered messages are flushed before exit.`,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)
}

func runLive(cmd *cobra.Command, _ []string) error {
	if err := buildServices(); err != nil {
		return err
	}
	if liveIngestor == nil || liveTail == nil {
		return fmt.Errorf("live: %w", errNotConfigured)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Println("Following live messages. Press Ctrl-C to stop.")

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- liveIngestor.Run(ctx)
	}()

	msgs, errs := liveTail.Tail(ctx)

	for msgs != nil || errs != nil {
		select {
		case msg, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			liveIngestor.Add(msg)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			stop()
			<-loopDone
			return fmt.Errorf("live tail failed: %w", err)
		}
	}

	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("live loop failed: %w", err)
	}

	// Drain whatever is still buffered before exiting.
	if liveIngestor.Pending() > 0 {
		cmd.Printf("Flushing %d buffered messages...\n", liveIngestor.Pending())
		flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
		defer cancel()
		if err := liveIngestor.Flush(flushCtx); err != nil {
			logger.Warn("Final flush failed: %v", err)
		}
	}

	cmd.Println("Stopped.")
	return nil
}
