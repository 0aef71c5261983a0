// Package handlers implements the Bot API command surface: summary
// triggering, store statistics, and help text.
package handlers

import (
	"log/slog"

	"github.com/teledigest/teledigest/internal/config"
	"github.com/teledigest/teledigest/internal/database"
	"github.com/teledigest/teledigest/internal/summarize"
)

// HandlerDeps carries the dependencies shared by all command handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Service *summarize.Service
	Config  *config.Config
}
