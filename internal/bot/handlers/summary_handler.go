package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/teledigest/teledigest/internal/bot/reply"
	"github.com/teledigest/teledigest/internal/summarize"
)

// NewSummaryHandler returns a handler for the /summary command.
func NewSummaryHandler(deps HandlerDeps) bot.HandlerFunc {
	return summaryHandler{deps}.Handle
}

type summaryHandler struct {
	deps HandlerDeps
}

// Handle processes the /summary command, running one summarization cycle
// over the stored backlog and replying with the generated digest. An
// optional numeric argument bounds how many messages are summarized.
func (h summaryHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "summary")

	if update.Message == nil {
		log.ErrorContext(ctx, "Summary handler called with nil Message", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	limit := h.parseLimit(update.Message.Text)
	log.InfoContext(ctx, "Summary requested", "chat_id", chatID, "limit", limit)

	if _, err := b.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	}); err != nil {
		log.WarnContext(ctx, "Failed to send typing action", "error", err, "chat_id", chatID)
	}

	sink := &reply.Sink{
		Bot:       b,
		ChatID:    chatID,
		ReplyTo:   update.Message.ID,
		ChunkSize: h.deps.Config.Bot.ChunkSize,
	}

	result, err := h.deps.Service.RunCycle(ctx, limit, sink)
	if err != nil {
		h.replyError(ctx, b, chatID, err, log)
		return
	}

	if result == nil {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Nothing to summarize yet.",
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send empty-backlog reply", "error", err, "chat_id", chatID)
		}
		return
	}

	log.InfoContext(ctx, "Summary delivered", "chat_id", chatID, "message_count", result.MessageCount)
}

// parseLimit extracts an optional message count from "/summary 30" style
// text and clamps it to the configured bounds.
func (h summaryHandler) parseLimit(text string) int {
	limit := h.deps.Config.Bot.DefaultLimit

	fields := strings.Fields(text)
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[1]); err == nil {
			limit = n
		}
	}

	if limit < 1 {
		limit = 1
	}
	if limit > h.deps.Config.Bot.MaxLimit {
		limit = h.deps.Config.Bot.MaxLimit
	}

	return limit
}

func (h summaryHandler) replyError(ctx context.Context, b *bot.Bot, chatID int64, err error, log *slog.Logger) {
	var (
		authErr *summarize.AuthError
		apiErr  *summarize.APIError
		text    string
	)

	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.As(err, &authErr):
		text = "Summarizer authentication failed, check the credentials."
	case errors.As(err, &apiErr):
		text = "The summarization service is unavailable right now, try again later."
	default:
		text = "Failed to produce a summary."
	}

	log.ErrorContext(ctx, "Summary cycle failed", "error", err, "chat_id", chatID)

	if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); sendErr != nil {
		log.ErrorContext(ctx, "Failed to send error reply", "error", sendErr, "chat_id", chatID)
	}
}
