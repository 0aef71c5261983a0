package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/teledigest/teledigest/internal/ingest"
)

// HistoryPage fetches one reverse-chronological page of chat history.
// A zero offsetID starts from the latest message; otherwise the page resumes
// below that message id. Flood-wait errors are surfaced as
// ingest.RateLimitError so the collector can suspend and resume.
func (c *Client) HistoryPage(ctx context.Context, chatID int64, offsetID int64, limit int) ([]ingest.RawMessage, error) {
	if err := c.waitReady(ctx); err != nil {
		return nil, err
	}

	peer, ok := c.peer(chatID)
	if !ok {
		return nil, fmt.Errorf("unknown chat %d: not present in dialog list", chatID)
	}

	req := &tg.MessagesGetHistoryRequest{
		Peer:  peer,
		Limit: limit,
	}
	if offsetID > 0 {
		req.OffsetID = int(offsetID)
	}

	res, err := c.client.API().MessagesGetHistory(ctx, req)
	if err != nil {
		if wait, isFlood := tgerr.AsFloodWait(err); isFlood {
			return nil, &ingest.RateLimitError{Wait: wait}
		}
		return nil, fmt.Errorf("failed to get history for chat %d: %w", chatID, err)
	}

	var raw []tg.MessageClass
	switch h := res.(type) {
	case *tg.MessagesMessages:
		c.registerEntities(h.Chats, h.Users)
		raw = h.Messages
	case *tg.MessagesMessagesSlice:
		c.registerEntities(h.Chats, h.Users)
		raw = h.Messages
	case *tg.MessagesChannelMessages:
		c.registerEntities(h.Chats, h.Users)
		raw = h.Messages
	default:
		return nil, fmt.Errorf("unexpected history result type: %T", res)
	}

	page := make([]ingest.RawMessage, 0, len(raw))
	for _, mc := range raw {
		m, ok := mc.(*tg.Message)
		if !ok {
			// Service messages carry no user content.
			continue
		}
		page = append(page, c.rawFromMessage(m, chatID))
	}

	return page, nil
}

// rawFromMessage converts an MTProto message into the pipeline's raw event
// shape. Message dates are unix seconds, interpreted as UTC.
func (c *Client) rawFromMessage(m *tg.Message, chatID int64) ingest.RawMessage {
	raw := ingest.RawMessage{
		ID:        int64(m.ID),
		ChatID:    chatID,
		ChatTitle: c.ChatTitle(context.Background(), chatID),
		Text:      m.Message,
		Date:      time.Unix(int64(m.Date), 0).UTC(),
	}

	fromID, ok := m.GetFromID()
	if !ok {
		// No sender object: typical for channel broadcasts.
		return raw
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch p := fromID.(type) {
	case *tg.PeerUser:
		if u, known := c.users[p.UserID]; known {
			raw.Sender = ingest.SenderUser{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
		} else {
			raw.Sender = ingest.SenderUser{ID: p.UserID}
		}
	case *tg.PeerChat:
		raw.Sender = ingest.SenderTitled{ID: p.ChatID, Title: c.titles[p.ChatID]}
	case *tg.PeerChannel:
		raw.Sender = ingest.SenderTitled{ID: p.ChannelID, Title: c.titles[p.ChannelID]}
	}

	return raw
}
