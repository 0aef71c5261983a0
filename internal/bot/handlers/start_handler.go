package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const helpText = "I summarize captured chat messages on demand.\n\n" +
	"/summary [n] - summarize the latest unsummarized messages (default 50)\n" +
	"/stats - message counts\n\n" +
	"Messages are only processed when you ask, never in the background."

// NewStartHandler returns the handler for /start and /help.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "start")

		if update.Message == nil {
			return
		}

		log.InfoContext(ctx, "Handling /start", "chat_id", update.Message.Chat.ID)

		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   helpText,
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to send help message", "error", err, "chat_id", update.Message.Chat.ID)
		}
	}
}
