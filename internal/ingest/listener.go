package ingest

import (
	"context"
	"log/slog"

	"github.com/teledigest/teledigest/internal/database"
)

// Listener consumes the live event stream and feeds each message through the
// same normalize-and-store path as the backfill collector. Events are handled
// sequentially; per-chat emission order is preserved.
type Listener struct {
	source EventSource
	norm   *Normalizer
	store  database.Store
	log    *slog.Logger
}

// NewListener creates a live Listener over the given event source.
func NewListener(source EventSource, norm *Normalizer, store database.Store, log *slog.Logger) *Listener {
	return &Listener{
		source: source,
		norm:   norm,
		store:  store,
		log:    log.With("component", "listener"),
	}
}

// Run blocks consuming events until ctx is cancelled or the stream closes.
// A stream closing without cancellation is a dropped connection and returns
// ErrConnectionLost; reconnect policy belongs to the owning process.
func (l *Listener) Run(ctx context.Context) error {
	events, err := l.source.Subscribe(ctx)
	if err != nil {
		return err
	}

	l.log.InfoContext(ctx, "Live listener started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-events:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				l.log.ErrorContext(ctx, "Event stream closed unexpectedly")
				return ErrConnectionLost
			}
			l.handle(ctx, raw)
		}
	}
}

// handle processes a single event. Failures are logged and do not stop the
// listener; only connection loss is terminal.
func (l *Listener) handle(ctx context.Context, raw RawMessage) {
	msg, ok := l.norm.Normalize(raw)
	if !ok {
		l.log.DebugContext(ctx, "Skipped filtered message", "message_id", raw.ID, "chat_id", raw.ChatID)
		return
	}

	isNew, err := l.store.InsertIfNew(ctx, &msg)
	if err != nil {
		l.log.ErrorContext(ctx, "Failed to store live message",
			"message_id", raw.ID, "chat_id", raw.ChatID, "error", err)
		return
	}
	if isNew {
		l.log.InfoContext(ctx, "New message stored",
			"chat", raw.ChatTitle, "sender", msg.Sender, "text_preview", preview(msg.Text, 100))
	}
}

func preview(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
