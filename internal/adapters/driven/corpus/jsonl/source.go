// Package jsonl provides message sources reading JSON Lines files produced
// by the export parser. Each line is one normalised message record; the
// parser has already resolved authorship and reply targets.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
	"github.com/lembra-labs/lembra-cli/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.MessageSource = (*Source)(nil)

// Source loads the message corpus from a directory of .jsonl files.
// Multiple files (one per export run) are merged and de-duplicated by ID.
type Source struct {
	dir string
}

// NewSource creates a source reading from the given directory.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Load reads every .jsonl file in the directory and returns the merged,
// de-duplicated corpus, ascending by ID.
func (s *Source) Load(ctx context.Context) ([]domain.Message, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var sources [][]domain.Message
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		messages, err := readFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		sources = append(sources, messages)
	}

	return domain.MergeMessages(sources...), nil
}

// readFile parses one JSONL file into messages.
func readFile(path string) ([]domain.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var messages []domain.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		msg, err := decodeMessage([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

// jsonMessage is the wire format of one message record.
type jsonMessage struct {
	ID            int64      `json:"id"`
	Author        string     `json:"author"`
	Timestamp     time.Time  `json:"timestamp"`
	Text          string     `json:"text,omitempty"`
	ReplyToID     *int64     `json:"reply_to_id,omitempty"`
	Media         *jsonMedia `json:"media,omitempty"`
	ForwardedFrom string     `json:"forwarded_from,omitempty"`
}

type jsonMedia struct {
	Kind string `json:"kind"`
	Path string `json:"path,omitempty"`
}

// decodeMessage parses one JSONL line into a domain message. The parser
// contract requires a resolved author; an absent author is rejected rather
// than defaulted, since the sentinel is the parser's job.
func decodeMessage(data []byte) (domain.Message, error) {
	var jm jsonMessage
	if err := json.Unmarshal(data, &jm); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if jm.ID == 0 {
		return domain.Message{}, fmt.Errorf("%w: missing message id", domain.ErrInvalidInput)
	}
	if jm.Author == "" {
		return domain.Message{}, fmt.Errorf("%w: message %d has no author", domain.ErrInvalidInput, jm.ID)
	}

	msg := domain.Message{
		ID:            jm.ID,
		Author:        jm.Author,
		Timestamp:     jm.Timestamp,
		Text:          jm.Text,
		ReplyToID:     jm.ReplyToID,
		ForwardedFrom: jm.ForwardedFrom,
	}
	if jm.Media != nil {
		msg.Media = &domain.MediaRef{
			Kind: domain.MediaKind(jm.Media.Kind),
			Path: jm.Media.Path,
		}
	}
	return msg, nil
}
