package domain

import (
	"sort"
	"time"
)

// MediaKind identifies the kind of media attached to a message.
type MediaKind string

// Recognised media kinds from the chat export.
const (
	MediaPhoto   MediaKind = "photo"
	MediaVideo   MediaKind = "video"
	MediaVoice   MediaKind = "voice"
	MediaSticker MediaKind = "sticker"
	MediaFile    MediaKind = "file"
)

// MediaRef describes media attached to a message. The path is an opaque
// reference into the export; the core never opens it.
type MediaRef struct {
	Kind MediaKind
	Path string
}

// Message is a single normalised chat message, as produced by the export
// parser or the live capture path.
//
// The parser is responsible for resolving authorship before messages reach
// the core: continuation messages inherit the preceding author, and messages
// whose author cannot be determined carry the "Unknown" sentinel. Author is
// therefore never empty here.
type Message struct {
	// ID is the export-assigned message identifier. Unique across the whole
	// corpus, monotonically increasing within a single export (gaps allowed).
	ID int64

	// Author is the resolved display name of the sender.
	Author string

	// Timestamp is the message time, timezone-aware.
	Timestamp time.Time

	// Text is the message body. May be empty for media-only messages.
	Text string

	// ReplyToID references the message this one replies to, if any.
	// It is a lookup key only; the target may not be in the working set.
	ReplyToID *int64

	// Media describes attached media, if any.
	Media *MediaRef

	// ForwardedFrom is the original author of a forwarded message.
	// Empty for non-forwarded messages.
	ForwardedFrom string
}

// HasContent reports whether the message carries anything retrievable.
// Messages with neither text nor media are skipped during chunking.
func (m Message) HasContent() bool {
	return m.Text != "" || m.Media != nil
}

// MergeMessages combines messages from multiple export sources into a single
// ascending-by-ID sequence, de-duplicating by ID. The first occurrence of an
// ID wins; re-exports of the same history carry identical content.
func MergeMessages(sources ...[]Message) []Message {
	total := 0
	for _, src := range sources {
		total += len(src)
	}
	if total == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, total)
	merged := make([]Message, 0, total)
	for _, src := range sources {
		for _, msg := range src {
			if _, ok := seen[msg.ID]; ok {
				continue
			}
			seen[msg.ID] = struct{}{}
			merged = append(merged, msg)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ID < merged[j].ID
	})

	return merged
}

// MessageIDs extracts the identifiers of the given messages, in order.
func MessageIDs(messages []Message) []int64 {
	if len(messages) == 0 {
		return nil
	}
	ids := make([]int64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	return ids
}
