package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/teledigest/teledigest/internal/database"
)

// MediaPlaceholder is stored in place of absent text for media-only messages.
// Text is never null and never empty.
const MediaPlaceholder = "[media or no text]"

// Normalizer maps raw platform events into canonical message records.
// It is a pure transformation: no I/O beyond its inputs.
type Normalizer struct {
	ignored  map[string]struct{}
	location *time.Location
}

// NewNormalizer builds a Normalizer that drops messages from the given sender
// names and localizes timestamps to loc. A nil loc means the system timezone.
func NewNormalizer(ignoredSenders []string, loc *time.Location) *Normalizer {
	ignored := make(map[string]struct{}, len(ignoredSenders))
	for _, name := range ignoredSenders {
		ignored[name] = struct{}{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{ignored: ignored, location: loc}
}

// Normalize resolves sender identity, text, and timestamp for a raw event.
// The second return value is false when the message was dropped by the
// ignore-list filter and must not be stored or counted.
func (n *Normalizer) Normalize(raw RawMessage) (database.Message, bool) {
	sender := n.resolveSenderName(raw)

	if _, drop := n.ignored[sender]; drop {
		return database.Message{}, false
	}

	text := raw.Text
	if text == "" {
		text = MediaPlaceholder
	}

	return database.Message{
		MessageID: raw.ID,
		ChatID:    raw.ChatID,
		Sender:    sender,
		SenderID:  n.resolveSenderID(raw),
		Text:      text,
		Date:      raw.Date.In(n.location),
	}, true
}

// resolveSenderName prefers the person's trimmed full name, then the entity
// title, then the sender's numeric id, and finally the chat display name for
// messages with no sender object.
func (n *Normalizer) resolveSenderName(raw RawMessage) string {
	switch s := raw.Sender.(type) {
	case SenderUser:
		if name := strings.TrimSpace(s.FirstName + " " + s.LastName); name != "" {
			return name
		}
		return strconv.FormatInt(s.ID, 10)
	case SenderTitled:
		if s.Title != "" {
			return s.Title
		}
		return strconv.FormatInt(s.ID, 10)
	default:
		return raw.ChatTitle
	}
}

// resolveSenderID falls back to the chat id when the platform exposes no
// sender, so channel-origin messages stay attributable to something stable.
func (n *Normalizer) resolveSenderID(raw RawMessage) int64 {
	switch s := raw.Sender.(type) {
	case SenderUser:
		return s.ID
	case SenderTitled:
		return s.ID
	default:
		return raw.ChatID
	}
}
