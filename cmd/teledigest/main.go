// Package main contains the entrypoint for the message collector and
// summarizer service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/teledigest/teledigest/internal/bot"
	"github.com/teledigest/teledigest/internal/bot/handlers"
	"github.com/teledigest/teledigest/internal/bot/tasks"
	"github.com/teledigest/teledigest/internal/config"
	"github.com/teledigest/teledigest/internal/database"
	"github.com/teledigest/teledigest/internal/ingest"
	"github.com/teledigest/teledigest/internal/logger"
	"github.com/teledigest/teledigest/internal/summarize"
	"github.com/teledigest/teledigest/internal/telegram"
	"github.com/teledigest/teledigest/internal/web"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components, handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	db, err := database.NewDB(cfg.Database.Path, log)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db, log)
	store := database.NewStore(db, log)

	loc := time.Local
	if cfg.Telegram.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Telegram.Timezone)
		if err != nil {
			log.Error("Failed to load timezone", "timezone", cfg.Telegram.Timezone, "error", err)
			return 1
		}
	}
	norm := ingest.NewNormalizer(cfg.Telegram.IgnoredSenders, loc)

	tgClient, err := telegram.NewClient(cfg.Telegram, log)
	if err != nil {
		log.Error("Failed to create Telegram client", "error", err)
		return 1
	}
	collector := ingest.NewCollector(tgClient, norm, store, log, cfg.Telegram.BackfillDelay)
	listener := ingest.NewListener(tgClient, norm, store, log)

	summarizer, err := summarize.New(ctx, cfg.Summarizer, log)
	if err != nil {
		log.Error("Failed to initialize summarizer", "error", err)
		return 1
	}
	service := summarize.NewService(store, summarizer, log)

	var tg *tgbot.Bot
	if cfg.Bot.Token != "" {
		hDeps := handlers.HandlerDeps{
			Logger:  log,
			Store:   store,
			Service: service,
			Config:  cfg,
		}

		tg, err = telegram.NewTelegramBot(cfg.Bot.Token, log, tgbot.WithMiddlewares(logger.Middleware(log)))
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return 1
		}

		if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
			log.Error("Failed to register Telegram handlers", "error", err)
			return 1
		}
	} else {
		log.Warn("No bot token configured, command interface disabled")
	}

	tDeps := tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		Service: service,
		Bot:     tg,
		Config:  cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	var webServer *web.Server
	if cfg.Web.Enabled {
		webServer = web.NewServer(store, cfg.Web.ListenAddr, log)
	}

	app := bot.NewBot(log, cfg, store, tgClient, collector, listener, tg, sched, webServer)

	log.Info("Starting service...")
	runErr := app.Run(ctx)
	log.Info("Run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Service stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Service stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
