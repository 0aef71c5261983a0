package telegram

import (
	"context"

	"github.com/gotd/td/tg"
)

// handleUpdate feeds new-message updates into the event channel. It runs on
// the gotd update loop, so it must never block: when the buffer is full the
// event is dropped with a warning rather than stalling the connection.
func (c *Client) handleUpdate(ctx context.Context, updates tg.UpdatesClass) error {
	switch u := updates.(type) {
	case *tg.Updates:
		c.registerEntities(u.Chats, u.Users)
		for _, upd := range u.Updates {
			c.handleSingle(ctx, upd)
		}
	case *tg.UpdatesCombined:
		c.registerEntities(u.Chats, u.Users)
		for _, upd := range u.Updates {
			c.handleSingle(ctx, upd)
		}
	}
	return nil
}

func (c *Client) handleSingle(ctx context.Context, update tg.UpdateClass) {
	var msg tg.MessageClass
	switch upd := update.(type) {
	case *tg.UpdateNewMessage:
		msg = upd.Message
	case *tg.UpdateNewChannelMessage:
		msg = upd.Message
	default:
		return
	}

	m, ok := msg.(*tg.Message)
	if !ok {
		return
	}

	chatID := peerID(m.PeerID)
	if chatID == 0 {
		return
	}

	raw := c.rawFromMessage(m, chatID)

	select {
	case c.events <- raw:
	default:
		c.log.WarnContext(ctx, "Event buffer full, dropping message",
			"message_id", raw.ID, "chat_id", raw.ChatID)
	}
}
