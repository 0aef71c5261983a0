// Package tasks implements scheduled tasks for the summarizer service.
// It includes task definitions, dependencies, and registration mechanisms.
package tasks

import (
	"log/slog"

	tgbot "github.com/go-telegram/bot"

	"github.com/teledigest/teledigest/internal/config"
	"github.com/teledigest/teledigest/internal/database"
	"github.com/teledigest/teledigest/internal/summarize"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Service *summarize.Service
	Bot     *tgbot.Bot
	Config  *config.Config
}
