// Package bot implements lifecycle management and component orchestration
// for the message collector and summarizer service.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/teledigest/teledigest/internal/config"
	"github.com/teledigest/teledigest/internal/database"
	"github.com/teledigest/teledigest/internal/ingest"
	"github.com/teledigest/teledigest/internal/telegram"
	"github.com/teledigest/teledigest/internal/web"
)

const dialogListLimit = 50

type platformClient interface {
	Run(ctx context.Context) error
	Dialogs(ctx context.Context, limit int) ([]telegram.Dialog, error)
}

type historyCollector interface {
	Collect(ctx context.Context, chatID int64, limit int) (int, error)
}

type liveListener interface {
	Run(ctx context.Context) error
}

// Bot represents the main application and manages its components'
// lifecycle: the MTProto client, the history backfill, the live update
// listener, the command bot, the scheduler, and the dashboard.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     database.Store
	tgClient  platformClient
	collector historyCollector
	listener  liveListener
	tgBot     *tgbot.Bot
	scheduler *Scheduler
	webServer *web.Server
}

// NewBot creates a new instance of the orchestrator with all required
// dependencies. tgBot and webServer may be nil when the command bot or
// the dashboard is disabled.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	tgClient platformClient,
	collector historyCollector,
	listener liveListener,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
	webServer *web.Server,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "orchestrator"),
		cfg:       cfg,
		store:     store,
		tgClient:  tgClient,
		collector: collector,
		listener:  listener,
		tgBot:     tgBot,
		scheduler: scheduler,
		webServer: webServer,
	}
}

// Run starts all components and handles graceful shutdown on context
// cancellation. It returns an error if any component fails during startup
// or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram MTProto client...")
		if err := b.tgClient.Run(gCtx); err != nil {
			return fmt.Errorf("telegram client failed: %w", err)
		}
		return nil
	})

	// The listener and the backfill run side by side so live messages
	// posted during a long backfill are stored as they arrive. The unique
	// (id, chat_id) constraint makes the overlap safe: whichever path
	// stores a message first wins and the other insert is a no-op.
	g.Go(func() error {
		if err := b.runListener(gCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := b.runBackfill(gCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		return nil
	})

	if b.tgBot != nil {
		g.Go(func() error {
			b.logger.Info("Starting Telegram bot listener...")
			b.tgBot.Start(gCtx)
			b.logger.Info("Telegram bot listener stopped.")

			if gCtx.Err() == nil {
				b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
				return fmt.Errorf("telegram bot listener stopped unexpectedly")
			}
			return nil
		})
	}

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	if b.webServer != nil {
		g.Go(func() error {
			b.logger.Info("Starting dashboard server...")
			if err := b.webServer.Run(gCtx); err != nil {
				return fmt.Errorf("dashboard server failed: %w", err)
			}
			return nil
		})
	}

	b.logger.Info("Orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Orchestrator stopped gracefully.")
	return nil
}

// runListener follows live updates until shutdown or connection loss.
func (b *Bot) runListener(ctx context.Context) error {
	b.logger.Info("Following live updates...")
	if err := b.listener.Run(ctx); err != nil {
		if errors.Is(err, ingest.ErrConnectionLost) {
			return fmt.Errorf("update stream ended: %w", err)
		}
		return err
	}
	return nil
}

// runBackfill lists the available dialogs and backfills history for the
// configured chats. After each chat it reports the stored totals.
func (b *Bot) runBackfill(ctx context.Context) error {
	dialogs, err := b.tgClient.Dialogs(ctx, dialogListLimit)
	if err != nil {
		return fmt.Errorf("failed to list dialogs: %w", err)
	}
	for _, d := range dialogs {
		b.logger.Info("Available dialog", "chat_id", d.ID, "title", d.Title)
	}

	for _, chatID := range b.cfg.Telegram.BackfillChats {
		stored, err := b.collector.Collect(ctx, chatID, b.cfg.Telegram.BackfillLimit)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			b.logger.Error("History backfill failed", "error", err, "chat_id", chatID)
			continue
		}
		b.logger.Info("History backfill finished", "chat_id", chatID, "stored", stored)
		b.logCounts(ctx, chatID)
	}

	b.logger.Info("History backfill complete for all configured chats.")
	return nil
}

func (b *Bot) logCounts(ctx context.Context, chatID int64) {
	total, err := b.store.Count(ctx)
	if err != nil {
		b.logger.Warn("Failed to count stored messages", "error", err)
		return
	}
	inChat, err := b.store.CountInChat(ctx, chatID)
	if err != nil {
		b.logger.Warn("Failed to count stored messages", "error", err, "chat_id", chatID)
		return
	}
	b.logger.Info("Messages stored so far", "total", total, "chat_id", chatID, "in_chat", inChat)
}
