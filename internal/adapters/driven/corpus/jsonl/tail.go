package jsonl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
	"github.com/lembra-labs/lembra-cli/internal/core/ports/driven"
	"github.com/lembra-labs/lembra-cli/internal/logger"
)

// Ensure Tailer implements the interface.
var _ driven.MessageTail = (*Tailer)(nil)

// Tailer streams messages appended to a JSONL spool file. The live capture
// process (the bot) appends one record per incoming message; this adapter
// follows the file with fsnotify and emits each new line as it lands.
type Tailer struct {
	path string
}

// NewTailer creates a tailer following the given spool file. The file does
// not need to exist yet; it is picked up on creation.
func NewTailer(path string) *Tailer {
	return &Tailer{path: path}
}

// Tail streams new messages until the context is cancelled. Records already
// in the file at start are skipped - the batch path owns history.
func (t *Tailer) Tail(ctx context.Context) (<-chan domain.Message, <-chan error) {
	msgs := make(chan domain.Message)
	errs := make(chan error, 1)

	go func() {
		defer close(msgs)
		defer close(errs)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			errs <- fmt.Errorf("creating watcher: %w", err)
			return
		}
		defer watcher.Close()

		// Watch the directory: the spool file may not exist yet, and
		// rename-based log rotation replaces the inode.
		if err := watcher.Add(filepath.Dir(t.path)); err != nil {
			errs <- fmt.Errorf("watching spool directory: %w", err)
			return
		}

		offset, err := t.currentSize()
		if err != nil {
			errs <- err
			return
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(t.path) {
					continue
				}
				if event.Op.Has(fsnotify.Create) {
					offset = 0 // rotated or fresh file, start over
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				offset = t.drain(ctx, offset, msgs)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Spool watcher error: %v", err)
			}
		}
	}()

	return msgs, errs
}

// currentSize returns the spool file's size, or zero if it does not exist.
func (t *Tailer) currentSize() (int64, error) {
	info, err := os.Stat(t.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat spool file: %w", err)
	}
	return info.Size(), nil
}

// drain reads records appended past offset and sends them. It returns the
// new offset. Malformed lines are logged and skipped - one bad record from
// the capture side must not stall the live tail.
func (t *Tailer) drain(ctx context.Context, offset int64, msgs chan<- domain.Message) int64 {
	f, err := os.Open(t.path)
	if err != nil {
		logger.Warn("Opening spool file: %v", err)
		return offset
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		logger.Warn("Seeking spool file: %v", err)
		return offset
	}

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// A partial line without trailing newline is still being
			// written; re-read it on the next event.
			return offset
		}
		offset += int64(len(line))

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		msg, err := decodeMessage([]byte(line))
		if err != nil {
			logger.Warn("Skipping malformed spool record: %v", err)
			continue
		}

		select {
		case <-ctx.Done():
			return offset
		case msgs <- msg:
		}
	}
}
