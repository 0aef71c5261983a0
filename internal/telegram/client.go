// Package telegram wraps the gotd MTProto client behind the narrow surface
// the ingestion pipeline needs: history pages, a live event subscription, and
// entity lookup. The client is an explicit capability passed to consumers;
// its lifecycle is owned by the process wiring.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"github.com/teledigest/teledigest/internal/config"
	"github.com/teledigest/teledigest/internal/ingest"
)

// Dialog identifies a conversation visible to the account.
type Dialog struct {
	ID    int64
	Title string
}

// Client is a connected MTProto session with an entity cache fed from dialog
// listings, history responses, and update envelopes.
type Client struct {
	client *telegram.Client
	cfg    config.TelegramConfig
	log    *slog.Logger

	// ready is closed once the session is authorized.
	ready chan struct{}

	mu     sync.Mutex
	peers  map[int64]tg.InputPeerClass
	titles map[int64]string
	users  map[int64]*tg.User

	events    chan ingest.RawMessage
	closeOnce sync.Once
}

// NewClient builds the MTProto client. The session is persisted to the
// configured session file so the interactive login happens once.
func NewClient(cfg config.TelegramConfig, log *slog.Logger) (*Client, error) {
	if cfg.APIID == 0 || cfg.APIHash == "" {
		return nil, fmt.Errorf("telegram api_id and api_hash are required")
	}

	c := &Client{
		cfg:    cfg,
		log:    log.With("component", "telegram"),
		ready:  make(chan struct{}),
		peers:  make(map[int64]tg.InputPeerClass),
		titles: make(map[int64]string),
		users:  make(map[int64]*tg.User),
		events: make(chan ingest.RawMessage, cfg.UpdateBuffer),
	}

	c.client = telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionFile},
		UpdateHandler:  telegram.UpdateHandlerFunc(c.handleUpdate),
	})

	return c, nil
}

// Run connects, authorizes if necessary, and blocks until ctx is cancelled or
// the connection drops. The event channel is closed when Run returns.
func (c *Client) Run(ctx context.Context) error {
	defer c.closeOnce.Do(func() { close(c.events) })

	err := c.client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(termAuth{phone: c.cfg.Phone}, auth.SendCodeOptions{})
		if err := c.client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("authorization failed: %w", err)
		}

		self, err := c.client.Self(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch self: %w", err)
		}
		c.log.Info("Connected to Telegram",
			"first_name", self.FirstName, "username", self.Username)

		close(c.ready)
		<-ctx.Done()
		return ctx.Err()
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("telegram client stopped: %w", err)
	}
	return nil
}

// Subscribe returns the live event channel. Events arriving before the
// first call are buffered, not lost, so messages posted while a backfill
// is still running reach the consumer. The channel closes when the
// connection drops or the client shuts down.
func (c *Client) Subscribe(ctx context.Context) (<-chan ingest.RawMessage, error) {
	if err := c.waitReady(ctx); err != nil {
		return nil, err
	}
	return c.events, nil
}

// Dialogs lists up to limit conversations and primes the entity cache with
// their peers and titles.
func (c *Client) Dialogs(ctx context.Context, limit int) ([]Dialog, error) {
	if err := c.waitReady(ctx); err != nil {
		return nil, err
	}

	res, err := c.client.API().MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		Limit:      limit,
		OffsetPeer: &tg.InputPeerEmpty{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list dialogs: %w", err)
	}

	var dialogList []tg.DialogClass
	switch d := res.(type) {
	case *tg.MessagesDialogs:
		c.registerEntities(d.Chats, d.Users)
		dialogList = d.Dialogs
	case *tg.MessagesDialogsSlice:
		c.registerEntities(d.Chats, d.Users)
		dialogList = d.Dialogs
	default:
		return nil, fmt.Errorf("unexpected dialogs result type: %T", res)
	}

	dialogs := make([]Dialog, 0, len(dialogList))
	for _, dc := range dialogList {
		d, ok := dc.(*tg.Dialog)
		if !ok {
			continue
		}
		id := peerID(d.Peer)
		if id == 0 {
			continue
		}
		dialogs = append(dialogs, Dialog{ID: id, Title: c.ChatTitle(ctx, id)})
	}

	return dialogs, nil
}

// ChatTitle resolves a chat's display name from the entity cache, falling
// back to the numeric id when the chat is unknown.
func (c *Client) ChatTitle(_ context.Context, chatID int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if title, ok := c.titles[chatID]; ok && title != "" {
		return title
	}
	return strconv.FormatInt(chatID, 10)
}

func (c *Client) waitReady(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ready:
		return nil
	}
}

func (c *Client) peer(chatID int64) (tg.InputPeerClass, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.peers[chatID]
	return p, ok
}

// registerEntities records peers, titles, and user records from a response or
// update envelope. Later registrations win, so renames propagate.
func (c *Client) registerEntities(chats []tg.ChatClass, users []tg.UserClass) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, chat := range chats {
		switch ch := chat.(type) {
		case *tg.Chat:
			c.peers[ch.ID] = &tg.InputPeerChat{ChatID: ch.ID}
			c.titles[ch.ID] = ch.Title
		case *tg.Channel:
			c.peers[ch.ID] = &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
			c.titles[ch.ID] = ch.Title
		}
	}

	for _, user := range users {
		u, ok := user.(*tg.User)
		if !ok {
			continue
		}
		c.users[u.ID] = u
		c.peers[u.ID] = &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}
		c.titles[u.ID] = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
}

func peerID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return p.ChatID
	case *tg.PeerChannel:
		return p.ChannelID
	default:
		return 0
	}
}
