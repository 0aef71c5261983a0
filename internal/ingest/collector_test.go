package ingest_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/teledigest/teledigest/internal/database"
	"github.com/teledigest/teledigest/internal/ingest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory database.Store for pipeline tests.
type memStore struct {
	mu       sync.Mutex
	nextRow  int64
	messages []database.Message
	seen     map[[2]int64]struct{}

	insertErr error
}

func newMemStore() *memStore {
	return &memStore{seen: make(map[[2]int64]struct{})}
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) InsertIfNew(_ context.Context, message *database.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return false, s.insertErr
	}

	key := [2]int64{message.MessageID, message.ChatID}
	if _, dup := s.seen[key]; dup {
		return false, nil
	}
	s.seen[key] = struct{}{}

	s.nextRow++
	message.RowID = s.nextRow
	s.messages = append(s.messages, *message)
	return true, nil
}

func (s *memStore) ClaimUnsummarized(_ context.Context, limit int) ([]database.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []database.Message
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if !s.messages[i].Summarized {
			out = append(out, s.messages[i])
		}
	}
	return out, nil
}

func (s *memStore) MarkSummarized(_ context.Context, rowIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range rowIDs {
		for i := range s.messages {
			if s.messages[i].RowID == id {
				s.messages[i].Summarized = true
			}
		}
	}
	return nil
}

func (s *memStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.messages)), nil
}

func (s *memStore) CountInChat(_ context.Context, chatID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, m := range s.messages {
		if m.ChatID == chatID {
			count++
		}
	}
	return count, nil
}

func (s *memStore) Stats(context.Context) (*database.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &database.Stats{TotalMessages: int64(len(s.messages))}
	for _, m := range s.messages {
		if m.Summarized {
			stats.SummarizedMessages++
			if m.Date.After(stats.LastSummaryDate) {
				stats.LastSummaryDate = m.Date
			}
		}
	}
	return stats, nil
}

func (s *memStore) RecentMessages(_ context.Context, limit int) ([]database.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []database.Message
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.messages[i])
	}
	return out, nil
}

// fakePager serves a fixed newest-first history, keyed by offset id the
// way the platform paginates. rateLimitAt triggers one rate-limit error
// before the page at that call index is served. dropPerPage removes one
// entry from each served page, the way the real pager drops service
// messages before returning.
type fakePager struct {
	history     []ingest.RawMessage
	dropPerPage bool

	mu          sync.Mutex
	calls       int
	rateLimitAt int
	rateLimited bool
}

func (p *fakePager) HistoryPage(_ context.Context, chatID int64, offsetID int64, limit int) ([]ingest.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.rateLimitAt > 0 && p.calls == p.rateLimitAt && !p.rateLimited {
		p.rateLimited = true
		p.calls--
		return nil, &ingest.RateLimitError{Wait: time.Millisecond}
	}

	start := 0
	if offsetID > 0 {
		for i, m := range p.history {
			if m.ID == offsetID {
				start = i + 1
				break
			}
		}
	}

	end := start + limit
	if end > len(p.history) {
		end = len(p.history)
	}
	if start >= len(p.history) {
		return nil, nil
	}

	page := p.history[start:end]
	if p.dropPerPage && len(page) >= 2 {
		filtered := make([]ingest.RawMessage, 0, len(page)-1)
		filtered = append(filtered, page[0])
		filtered = append(filtered, page[2:]...)
		return filtered, nil
	}
	return page, nil
}

func makeHistory(chatID int64, count int) []ingest.RawMessage {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	history := make([]ingest.RawMessage, 0, count)
	for i := 0; i < count; i++ {
		// Newest first, ids descending.
		history = append(history, ingest.RawMessage{
			ID:        int64(count - i),
			ChatID:    chatID,
			ChatTitle: "Test Chat",
			Sender:    ingest.SenderUser{ID: 100 + int64(i%3), FirstName: fmt.Sprintf("User%d", i%3)},
			Text:      fmt.Sprintf("message %d", count-i),
			Date:      base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return history
}

func TestCollectorBackfill(t *testing.T) {
	t.Parallel()

	const chatID = int64(42)

	t.Run("stores new messages and skips duplicates on a second run", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		pager := &fakePager{history: makeHistory(chatID, 250)}
		norm := ingest.NewNormalizer(nil, time.UTC)
		collector := ingest.NewCollector(pager, norm, store, testLogger(), 0)

		inserted, err := collector.Collect(context.Background(), chatID, 150)
		if err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
		if inserted != 150 {
			t.Errorf("inserted = %d, want 150", inserted)
		}

		inserted, err = collector.Collect(context.Background(), chatID, 150)
		if err != nil {
			t.Fatalf("second Collect returned error: %v", err)
		}
		if inserted != 0 {
			t.Errorf("second run inserted = %d, want 0", inserted)
		}
	})

	t.Run("filters ignored senders without counting them", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		pager := &fakePager{history: makeHistory(chatID, 90)}
		norm := ingest.NewNormalizer([]string{"User0"}, time.UTC)
		collector := ingest.NewCollector(pager, norm, store, testLogger(), 0)

		inserted, err := collector.Collect(context.Background(), chatID, 90)
		if err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
		if inserted != 60 {
			t.Errorf("inserted = %d, want 60", inserted)
		}

		count, err := store.Count(context.Background())
		if err != nil {
			t.Fatalf("Count returned error: %v", err)
		}
		if count != 60 {
			t.Errorf("stored = %d, want 60", count)
		}
	})

	t.Run("suspends on rate limit and resumes the same page", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		pager := &fakePager{history: makeHistory(chatID, 150), rateLimitAt: 2}
		norm := ingest.NewNormalizer(nil, time.UTC)
		collector := ingest.NewCollector(pager, norm, store, testLogger(), 0)

		inserted, err := collector.Collect(context.Background(), chatID, 150)
		if err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
		if inserted != 150 {
			t.Errorf("inserted = %d, want 150", inserted)
		}
	})

	t.Run("reaches the limit when pages come back short", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		pager := &fakePager{history: makeHistory(chatID, 400), dropPerPage: true}
		norm := ingest.NewNormalizer(nil, time.UTC)
		collector := ingest.NewCollector(pager, norm, store, testLogger(), 0)

		inserted, err := collector.Collect(context.Background(), chatID, 200)
		if err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
		if inserted != 200 {
			t.Errorf("inserted = %d, want 200", inserted)
		}
	})

	t.Run("stops at end of history", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		pager := &fakePager{history: makeHistory(chatID, 30)}
		norm := ingest.NewNormalizer(nil, time.UTC)
		collector := ingest.NewCollector(pager, norm, store, testLogger(), 0)

		inserted, err := collector.Collect(context.Background(), chatID, 500)
		if err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
		if inserted != 30 {
			t.Errorf("inserted = %d, want 30", inserted)
		}
	})

	t.Run("skips failing inserts and continues", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.insertErr = fmt.Errorf("disk full")
		pager := &fakePager{history: makeHistory(chatID, 10)}
		norm := ingest.NewNormalizer(nil, time.UTC)
		collector := ingest.NewCollector(pager, norm, store, testLogger(), 0)

		inserted, err := collector.Collect(context.Background(), chatID, 10)
		if err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
		if inserted != 0 {
			t.Errorf("inserted = %d, want 0", inserted)
		}
	})
}
