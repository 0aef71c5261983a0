package telegram

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/gotd/td/tg"

	"github.com/teledigest/teledigest/internal/config"
)

func newUpdateClient(t *testing.T, buffer int) *Client {
	t.Helper()

	c, err := NewClient(config.TelegramConfig{
		APIID:        1,
		APIHash:      "hash",
		SessionFile:  filepath.Join(t.TempDir(), "session.json"),
		UpdateBuffer: buffer,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func newMessageUpdate(id int, userID int64, text string) *tg.Updates {
	return &tg.Updates{
		Users: []tg.UserClass{
			&tg.User{ID: userID, FirstName: "Ann", AccessHash: 1},
		},
		Updates: []tg.UpdateClass{
			&tg.UpdateNewMessage{
				Message: &tg.Message{
					ID:      id,
					PeerID:  &tg.PeerUser{UserID: userID},
					Message: text,
					Date:    1717243200,
				},
			},
		},
	}
}

func TestUpdatesBufferedBeforeSubscribe(t *testing.T) {
	t.Parallel()

	c := newUpdateClient(t, 4)

	// A message arriving while a backfill is still in progress, before any
	// consumer has pulled the event channel.
	if err := c.handleUpdate(context.Background(), newMessageUpdate(5, 9, "hi")); err != nil {
		t.Fatalf("handleUpdate returned error: %v", err)
	}

	select {
	case raw := <-c.events:
		if raw.ID != 5 || raw.ChatID != 9 || raw.Text != "hi" {
			t.Errorf("buffered event = %+v, want id 5 in chat 9", raw)
		}
	default:
		t.Fatal("update delivered before the channel was consumed is missing from the buffer")
	}
}

func TestUpdatesDropOnlyWhenBufferFull(t *testing.T) {
	t.Parallel()

	c := newUpdateClient(t, 1)
	ctx := context.Background()

	if err := c.handleUpdate(ctx, newMessageUpdate(1, 9, "first")); err != nil {
		t.Fatalf("handleUpdate returned error: %v", err)
	}
	// Must not block even though the buffer is already full.
	if err := c.handleUpdate(ctx, newMessageUpdate(2, 9, "second")); err != nil {
		t.Fatalf("handleUpdate returned error: %v", err)
	}

	select {
	case raw := <-c.events:
		if raw.ID != 1 {
			t.Errorf("buffered event id = %d, want 1", raw.ID)
		}
	default:
		t.Fatal("first update missing from the buffer")
	}

	select {
	case raw := <-c.events:
		t.Errorf("unexpected second buffered event: %+v", raw)
	default:
	}
}

func TestServiceUpdatesIgnored(t *testing.T) {
	t.Parallel()

	c := newUpdateClient(t, 4)

	upd := &tg.Updates{
		Updates: []tg.UpdateClass{
			&tg.UpdateNewMessage{Message: &tg.MessageService{ID: 3, PeerID: &tg.PeerChat{ChatID: 12}}},
		},
	}
	if err := c.handleUpdate(context.Background(), upd); err != nil {
		t.Fatalf("handleUpdate returned error: %v", err)
	}

	select {
	case raw := <-c.events:
		t.Errorf("service message produced an event: %+v", raw)
	default:
	}
}
