// Package main contains a one-off CLI that summarizes text from a file
// or the command line using the configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/teledigest/teledigest/internal/config"
	"github.com/teledigest/teledigest/internal/logger"
	"github.com/teledigest/teledigest/internal/summarize"
)

func main() {
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	filePath := flag.String("file", "", "Path to a text file to summarize")
	text := flag.String("text", "", "Text to summarize")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	input := *text
	if *filePath != "" {
		data, err := os.ReadFile(*filePath)
		if err != nil {
			log.Error("Failed to read input file", "path", *filePath, "error", err)
			return 1
		}
		input = string(data)
	}

	if input == "" {
		fmt.Fprintln(os.Stderr, "nothing to summarize: pass -text or -file")
		return 1
	}

	summarizer, err := summarize.New(ctx, cfg.Summarizer, log)
	if err != nil {
		log.Error("Failed to initialize summarizer", "error", err)
		return 1
	}

	summary, err := summarizer.Summarize(ctx, input)
	if err != nil {
		log.Error("Summarization failed", "error", err)
		return 1
	}

	fmt.Println(summary)
	return 0
}
