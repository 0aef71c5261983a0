package summarize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teledigest/teledigest/internal/config"
)

// New builds the configured Summarizer backend.
func New(ctx context.Context, cfg config.SummarizerConfig, log *slog.Logger) (Summarizer, error) {
	switch cfg.Provider {
	case "gigachat":
		return NewGigaChat(cfg.GigaChat, log), nil
	case "gemini":
		return NewGemini(ctx, cfg.Gemini, log)
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
	}
}
