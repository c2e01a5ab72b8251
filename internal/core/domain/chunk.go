package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Chunk source values recorded in chunk metadata.
const (
	// ChunkSourceExport marks chunks produced by a batch ingestion run.
	ChunkSourceExport = "export"

	// ChunkSourceLive marks chunks produced by the live capture path.
	ChunkSourceLive = "live"
)

// Chunk is a bounded, contiguous group of messages treated as one retrievable
// unit. Chunks are immutable once created: the chunker builds them, the
// ingestion driver embeds and stores them, and nothing mutates them after.
type Chunk struct {
	// ID is derived deterministically from the member message IDs, so
	// re-chunking unchanged input reproduces identical chunks.
	ID string

	// MessageIDs lists the member messages, in input order.
	MessageIDs []int64

	// Text is the concatenated formatted message bodies, ready for embedding.
	Text string

	// Authors is the set of distinct authors, in first-seen order.
	Authors []string

	// StartTime and EndTime bound the chunk's time range.
	StartTime time.Time
	EndTime   time.Time

	// Embedding is the vector representation, attached by the ingestion
	// driver before storage. Nil until embedded.
	Embedding []float32

	// Source records which path produced the chunk (export or live).
	Source string
}

// ChunkID derives the stable chunk identifier from the member message IDs.
func ChunkID(messageIDs []int64) string {
	parts := make([]string, len(messageIDs))
	for i, id := range messageIDs {
		parts[i] = fmt.Sprintf("%d", id)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "-")))
	return hex.EncodeToString(sum[:8])
}

// Media placeholder labels, matching the original export language (pt-BR).
var mediaLabels = map[MediaKind]string{
	MediaPhoto:   "[Foto]",
	MediaVideo:   "[Vídeo]",
	MediaVoice:   "[Áudio]",
	MediaSticker: "[Sticker]",
	MediaFile:    "[Arquivo]",
}

// FormatMessage renders a single message the way it appears inside a chunk's
// text body.
func FormatMessage(m Message) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(m.Timestamp.Format("02/01/2006 15:04"))
	b.WriteString("] ")
	b.WriteString(m.Author)
	if m.ForwardedFrom != "" {
		b.WriteString(" (encaminhou de ")
		b.WriteString(m.ForwardedFrom)
		b.WriteString(")")
	}
	b.WriteString(":")

	if m.Text != "" {
		b.WriteString(" ")
		b.WriteString(m.Text)
	} else if m.Media != nil {
		label, ok := mediaLabels[m.Media.Kind]
		if !ok {
			label = "[Mídia]"
		}
		b.WriteString(" ")
		b.WriteString(label)
	}

	return b.String()
}

// NewChunk builds a chunk from its member messages. The caller guarantees the
// messages are non-empty and in input order.
func NewChunk(messages []Message, source string) Chunk {
	ids := MessageIDs(messages)

	texts := make([]string, len(messages))
	for i, m := range messages {
		texts[i] = FormatMessage(m)
	}

	seen := make(map[string]struct{}, len(messages))
	var authors []string
	for _, m := range messages {
		if _, ok := seen[m.Author]; ok {
			continue
		}
		seen[m.Author] = struct{}{}
		authors = append(authors, m.Author)
	}

	return Chunk{
		ID:         ChunkID(ids),
		MessageIDs: ids,
		Text:       strings.Join(texts, "\n"),
		Authors:    authors,
		StartTime:  messages[0].Timestamp,
		EndTime:    messages[len(messages)-1].Timestamp,
		Source:     source,
	}
}
