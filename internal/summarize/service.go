package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/teledigest/teledigest/internal/database"
)

// Service runs summarization cycles against the message store.
//
// Cycles are serialized by an in-process mutex so no two cycles can claim
// overlapping unsummarized batches; the store additionally reads each batch
// inside a single transaction.
type Service struct {
	store      database.Store
	summarizer Summarizer
	log        *slog.Logger

	mu sync.Mutex
}

// CycleResult describes a completed cycle.
type CycleResult struct {
	MessageCount int
	Summary      string
}

// NewService creates a cycle runner over the given store and backend.
func NewService(store database.Store, summarizer Summarizer, log *slog.Logger) *Service {
	return &Service{
		store:      store,
		summarizer: summarizer,
		log:        log.With("component", "summarize"),
	}
}

// RunCycle claims up to limit unsummarized messages, summarizes them, hands
// the summary to sink, and marks exactly the claimed rows processed.
//
// A nil result with nil error means there was nothing to do. On any failure
// nothing is marked, so the same batch is retried on the next cycle.
func (s *Service) RunCycle(ctx context.Context, limit int, sink Sink) (*CycleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.store.ClaimUnsummarized(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim batch: %w", err)
	}
	if len(batch) == 0 {
		s.log.InfoContext(ctx, "No unsummarized messages, nothing to do")
		return nil, nil
	}

	prompt := BuildPrompt(batch)
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyInput
	}

	s.log.InfoContext(ctx, "Summarizing batch", "count", len(batch), "limit", limit)

	summary, err := s.summarizer.Summarize(ctx, prompt)
	if err != nil {
		s.log.ErrorContext(ctx, "Summarization failed, batch left unmarked", "error", err)
		return nil, err
	}

	if err := sink.Deliver(ctx, summary); err != nil {
		s.log.ErrorContext(ctx, "Summary delivery failed, batch left unmarked", "error", err)
		return nil, fmt.Errorf("failed to deliver summary: %w", err)
	}

	rowIDs := make([]int64, len(batch))
	for i, m := range batch {
		rowIDs[i] = m.RowID
	}
	if err := s.store.MarkSummarized(ctx, rowIDs); err != nil {
		return nil, fmt.Errorf("summary delivered but marking failed: %w", err)
	}

	s.log.InfoContext(ctx, "Cycle complete", "count", len(batch))
	return &CycleResult{MessageCount: len(batch), Summary: summary}, nil
}

// BuildPrompt renders one line per message as "[date] sender: text" in the
// order given, which is newest first out of the store.
func BuildPrompt(messages []database.Message) string {
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(fmt.Sprintf("[%s] %s: %s", m.Date.Format("2006-01-02 15:04:05"), m.Sender, m.Text))
	}
	return sb.String()
}
