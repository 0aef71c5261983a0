// Package ingest implements the message ingestion pipeline: normalization of
// raw platform events, historical backfill, and the live update consumer.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrConnectionLost is returned by the Listener when the platform event
// stream closes without the context being cancelled. It is terminal: the
// owning process decides whether to reconnect.
var ErrConnectionLost = errors.New("platform connection lost")

// RateLimitError carries the cooldown the platform demands before the next
// request. It is handled by suspension, never treated as a hard failure.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, wait %s", e.Wait)
}

// Sender describes who produced a message. Exactly one of the three shapes
// applies: a person, a titled entity (group or channel posting as itself), or
// nothing at all, which is typical for channel broadcasts.
type Sender interface {
	isSender()
}

// SenderUser is a person with a numeric id and a first/last name pair.
type SenderUser struct {
	ID        int64
	FirstName string
	LastName  string
}

func (SenderUser) isSender() {}

// SenderTitled is a group or channel acting as the sender.
type SenderTitled struct {
	ID    int64
	Title string
}

func (SenderTitled) isSender() {}

// RawMessage is a platform event or history item before normalization.
type RawMessage struct {
	ID        int64
	ChatID    int64
	ChatTitle string

	// Sender is nil when the platform exposes no sender object.
	Sender Sender

	// Text is empty for media-only messages.
	Text string

	// Date is the capture instant. Timestamps arriving without timezone
	// information are constructed as UTC by the platform layer.
	Date time.Time
}

// HistoryPager fetches one reverse-chronological page of a chat's history.
// offsetID zero means "from the latest message"; a non-zero offset resumes
// below that message id.
type HistoryPager interface {
	HistoryPage(ctx context.Context, chatID int64, offsetID int64, limit int) ([]RawMessage, error)
}

// EventSource is a cancellable subscription to new platform messages. The
// returned channel is closed when the connection drops or ctx is cancelled.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan RawMessage, error)
}
