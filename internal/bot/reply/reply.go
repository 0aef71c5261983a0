// Package reply delivers summaries back to Telegram chats, splitting
// long texts into messages the Bot API will accept.
package reply

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Sink sends a summary to a chat as one or more messages. The first
// chunk replies to the triggering message when ReplyTo is set.
type Sink struct {
	Bot       *tgbot.Bot
	ChatID    int64
	ReplyTo   int
	ChunkSize int
}

// Deliver sends summary to the configured chat, chunked to ChunkSize runes.
func (s *Sink) Deliver(ctx context.Context, summary string) error {
	chunks := SplitChunks(summary, s.ChunkSize)
	for i, chunk := range chunks {
		params := &tgbot.SendMessageParams{
			ChatID: s.ChatID,
			Text:   chunk,
		}
		if i == 0 && s.ReplyTo != 0 {
			params.ReplyParameters = &models.ReplyParameters{MessageID: s.ReplyTo}
		}

		if _, err := s.Bot.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send summary chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	return nil
}

// SplitChunks splits text into pieces of at most size runes. A size of
// zero or less returns the text as a single chunk.
func SplitChunks(text string, size int) []string {
	if size <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
