package services

import (
	"fmt"
	"time"

	"github.com/lembra-labs/lembra-cli/internal/core/domain"
)

// DefaultGapThreshold is the maximum time gap between messages considered
// part of the same conversation.
const DefaultGapThreshold = 30 * time.Minute

// DefaultMaxChunkChars is the default serialized size bound per chunk.
// Roughly 500 tokens at 4 chars/token for Portuguese text.
const DefaultMaxChunkChars = 2000

// Chunker groups an ordered message sequence into conversational chunks.
// It is pure: no I/O, no clock, deterministic for a given input.
type Chunker struct {
	gap      time.Duration
	maxChars int
	source   string
}

// ChunkerOption configures the chunker.
type ChunkerOption func(*Chunker)

// WithGapThreshold sets the temporal gap threshold for grouping.
func WithGapThreshold(gap time.Duration) ChunkerOption {
	return func(c *Chunker) {
		if gap > 0 {
			c.gap = gap
		}
	}
}

// WithMaxChars sets the maximum serialized characters per chunk.
func WithMaxChars(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithChunkSource sets the source tag recorded on produced chunks.
func WithChunkSource(source string) ChunkerOption {
	return func(c *Chunker) {
		if source != "" {
			c.source = source
		}
	}
}

// NewChunker creates a chunker with the given options.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		gap:      DefaultGapThreshold,
		maxChars: DefaultMaxChunkChars,
		source:   domain.ChunkSourceExport,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GapThreshold returns the configured temporal gap threshold. The ingestion
// driver uses it to size the trailing-context window.
func (c *Chunker) GapThreshold() time.Duration {
	return c.gap
}

// Split groups the messages into chunks covering every content-bearing input
// message exactly once, in input order.
//
// Grouping: a message joins the current group if it replies to a message in
// the group, or if the gap to the group's last message is within the
// threshold. The reply rule takes precedence - a reply pulls a message into
// its group even across a large time gap. A message matching neither rule
// always starts a new group; already-closed groups are never reopened.
//
// Each closed group is then split by whole messages against the size bound.
// A single message whose formatted body alone exceeds the bound becomes its
// own oversized chunk; truncation would silently destroy retrievable content.
func (c *Chunker) Split(messages []domain.Message) ([]domain.Chunk, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	relevant := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.HasContent() {
			relevant = append(relevant, m)
		}
	}
	if len(relevant) == 0 {
		return nil, nil
	}

	for i := 1; i < len(relevant); i++ {
		if relevant[i].ID <= relevant[i-1].ID {
			return nil, fmt.Errorf("%w: message %d follows %d",
				domain.ErrOutOfOrder, relevant[i].ID, relevant[i-1].ID)
		}
	}

	var chunks []domain.Chunk
	for _, group := range c.group(relevant) {
		chunks = append(chunks, c.splitBySize(group)...)
	}
	return chunks, nil
}

// group partitions messages into conversation groups.
func (c *Chunker) group(messages []domain.Message) [][]domain.Message {
	var groups [][]domain.Message
	current := []domain.Message{messages[0]}

	for _, msg := range messages[1:] {
		if c.joinsGroup(msg, current) {
			current = append(current, msg)
			continue
		}
		groups = append(groups, current)
		current = []domain.Message{msg}
	}

	return append(groups, current)
}

// joinsGroup decides whether msg belongs to the current group. The reply
// rule is checked first: conversational continuity by reference is a
// stronger signal than clock time.
func (c *Chunker) joinsGroup(msg domain.Message, group []domain.Message) bool {
	if msg.ReplyToID != nil {
		for _, m := range group {
			if m.ID == *msg.ReplyToID {
				return true
			}
		}
		// Reply target outside the group (or outside the working set
		// entirely) is no signal either way; fall back to the temporal rule.
	}
	last := group[len(group)-1]
	return msg.Timestamp.Sub(last.Timestamp) <= c.gap
}

// splitBySize breaks one conversation group into size-bounded chunks by
// greedily appending whole messages.
func (c *Chunker) splitBySize(group []domain.Message) []domain.Chunk {
	var chunks []domain.Chunk
	var current []domain.Message
	currentLen := 0

	for _, msg := range group {
		msgLen := len(domain.FormatMessage(msg))
		sepLen := 0
		if len(current) > 0 {
			sepLen = 1 // joining newline
		}
		if len(current) > 0 && currentLen+sepLen+msgLen > c.maxChars {
			chunks = append(chunks, domain.NewChunk(current, c.source))
			current = nil
			currentLen = 0
			sepLen = 0
		}
		current = append(current, msg)
		currentLen += sepLen + msgLen
	}

	if len(current) > 0 {
		chunks = append(chunks, domain.NewChunk(current, c.source))
	}
	return chunks
}
