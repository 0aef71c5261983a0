package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/teledigest/teledigest/internal/bot/reply"
	"github.com/teledigest/teledigest/internal/summarize"
)

// newSummaryTask creates the scheduled task function for running a
// summarization cycle over the stored backlog. The digest goes to the
// admin chat when one is configured, otherwise to standard output.
func newSummaryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "summary")

	limit := deps.Config.Bot.DefaultLimit
	if taskCfg, ok := deps.Config.Scheduler.Tasks["summary"]; ok && taskCfg.Limit > 0 {
		limit = taskCfg.Limit
	}

	var sink summarize.Sink = summarize.ConsoleSink{}
	if deps.Bot != nil && deps.Config.Bot.AdminID != 0 {
		sink = &reply.Sink{
			Bot:       deps.Bot,
			ChatID:    deps.Config.Bot.AdminID,
			ChunkSize: deps.Config.Bot.ChunkSize,
		}
	}

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled summary task", "limit", limit)
		startTime := time.Now()

		result, err := deps.Service.RunCycle(ctx, limit, sink)
		duration := time.Since(startTime)

		if err != nil {
			log.ErrorContext(ctx, "Scheduled summary task failed", "error", err, "duration", duration)
			return fmt.Errorf("summary cycle failed: %w", err)
		}

		if result == nil {
			log.InfoContext(ctx, "Scheduled summary task found nothing to do", "duration", duration)
			return nil
		}

		log.InfoContext(ctx, "Scheduled summary task completed",
			"message_count", result.MessageCount, "duration", duration)
		return nil
	}
}
