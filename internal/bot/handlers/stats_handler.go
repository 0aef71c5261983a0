package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

// Handle processes the /stats command, reporting how many messages are
// stored and how many of them have already been summarized.
func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil {
		log.ErrorContext(ctx, "Stats handler called with nil Message", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID

	stats, err := h.deps.Store.Stats(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load statistics", "error", err, "chat_id", chatID)
		if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Failed to load statistics.",
		}); sendErr != nil {
			log.ErrorContext(ctx, "Failed to send error reply", "error", sendErr, "chat_id", chatID)
		}
		return
	}

	lastSummary := "never"
	if !stats.LastSummaryDate.IsZero() {
		lastSummary = stats.LastSummaryDate.Format("2006-01-02 15:04:05")
	}

	text := fmt.Sprintf(
		"Messages stored: %d\nSummarized: %d\nPending: %d\nLast summarized message: %s",
		stats.TotalMessages,
		stats.SummarizedMessages,
		stats.TotalMessages-stats.SummarizedMessages,
		lastSummary,
	)

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send stats reply", "error", err, "chat_id", chatID)
	}
}
