package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teledigest/teledigest/internal/database"
)

const historyPageSize = 100

// Collector performs historical backfill for a chat: it pages through the
// platform history, normalizes each item, and stores the new ones.
type Collector struct {
	pager HistoryPager
	norm  *Normalizer
	store database.Store
	log   *slog.Logger

	// delay between stored messages keeps steady-state backfill under the
	// platform rate limits. Politeness, not correctness.
	delay time.Duration
}

// NewCollector creates a backfill Collector.
func NewCollector(pager HistoryPager, norm *Normalizer, store database.Store, log *slog.Logger, delay time.Duration) *Collector {
	return &Collector{
		pager: pager,
		norm:  norm,
		store: store,
		log:   log.With("component", "collector"),
		delay: delay,
	}
}

// Collect fetches up to limit most-recent messages for chatID and stores the
// ones not seen before. It returns the count of genuinely new insertions:
// duplicates and filtered messages are not counted. Individual message
// failures are logged and skipped; a rate-limit signal suspends collection
// for the required wait and resumes from where it left off.
func (c *Collector) Collect(ctx context.Context, chatID int64, limit int) (int, error) {
	log := c.log.With("chat_id", chatID)
	log.InfoContext(ctx, "Starting backfill", "limit", limit)

	var (
		inserted  int
		fetched   int
		offsetID  int64
		rateLimit *RateLimitError
	)

	for fetched < limit {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}

		page, err := c.pager.HistoryPage(ctx, chatID, offsetID, historyPageSize)
		if err != nil {
			if errors.As(err, &rateLimit) {
				log.WarnContext(ctx, "Rate limited during backfill, suspending", "wait", rateLimit.Wait)
				if err := sleepContext(ctx, rateLimit.Wait); err != nil {
					return inserted, err
				}
				continue
			}
			log.ErrorContext(ctx, "Failed to fetch history page", "offset_id", offsetID, "error", err)
			return inserted, err
		}

		// Only an empty page means end of history. A short page does not:
		// the pager drops service messages before returning, so a full
		// upstream page can come back with fewer entries.
		if len(page) == 0 {
			break
		}

		for _, raw := range page {
			if fetched == limit {
				break
			}
			fetched++
			offsetID = raw.ID

			msg, ok := c.norm.Normalize(raw)
			if !ok {
				log.DebugContext(ctx, "Skipped filtered message", "message_id", raw.ID)
				continue
			}

			isNew, err := c.store.InsertIfNew(ctx, &msg)
			if err != nil {
				log.ErrorContext(ctx, "Failed to store message, continuing", "message_id", raw.ID, "error", err)
				continue
			}
			if isNew {
				inserted++
			}

			if c.delay > 0 {
				if err := sleepContext(ctx, c.delay); err != nil {
					return inserted, err
				}
			}
		}
	}

	log.InfoContext(ctx, "Backfill finished", "fetched", fetched, "inserted", inserted)
	return inserted, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
