package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Store defines the message persistence operations used by the ingestion
// pipeline, the summarization cycle, and the dashboard.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// InsertIfNew attempts to insert the message and reports whether a new
	// row was created. A duplicate (id, chat_id) pair is not an error.
	InsertIfNew(ctx context.Context, message *Message) (bool, error)

	// ClaimUnsummarized returns up to limit unsummarized messages, newest
	// first by date, read within a single transaction.
	ClaimUnsummarized(ctx context.Context, limit int) ([]Message, error)

	// MarkSummarized flips summarized on exactly the given rowids.
	// No-op on empty input.
	MarkSummarized(ctx context.Context, rowIDs []int64) error

	// Count returns the total number of stored messages.
	Count(ctx context.Context) (int64, error)

	// CountInChat returns the number of stored messages for one chat.
	CountInChat(ctx context.Context, chatID int64) (int64, error)

	// Stats returns the aggregate counters served by the dashboard.
	Stats(ctx context.Context) (*Stats, error)

	// RecentMessages returns up to limit messages, newest first by date.
	RecentMessages(ctx context.Context, limit int) ([]Message, error)
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by the given sqlx connection pool.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) InsertIfNew(ctx context.Context, message *Message) (bool, error) {
	if message == nil {
		return false, fmt.Errorf("cannot insert nil message")
	}
	if message.ChatID == 0 {
		return false, fmt.Errorf("message must have a non-zero chat_id")
	}
	if message.Date.IsZero() {
		return false, fmt.Errorf("message must have a non-zero date")
	}

	query := `
        INSERT OR IGNORE INTO messages (id, chat_id, sender, sender_id, text, date, summarized)
        VALUES (:id, :chat_id, :sender, :sender_id, :text, :date, 0);
    `

	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error inserting message",
			"message_id", message.MessageID, "chat_id", message.ChatID, "error", err)
		return false, fmt.Errorf("failed to insert message %d (chat %d): %w", message.MessageID, message.ChatID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		s.logger.DebugContext(ctx, "Duplicate message skipped",
			"message_id", message.MessageID, "chat_id", message.ChatID)
		return false, nil
	}

	if id, err := result.LastInsertId(); err == nil {
		message.RowID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve rowid after insert",
			"message_id", message.MessageID, "chat_id", message.ChatID, "error", err)
	}

	s.logger.DebugContext(ctx, "Message stored",
		"message_id", message.MessageID, "chat_id", message.ChatID, "rowid", message.RowID)
	return true, nil
}

func (s *sqlxStore) ClaimUnsummarized(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for batch claim", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	var messages []Message
	query := `
        SELECT rowid, id, chat_id, sender, sender_id, text, date, summarized
        FROM messages
        WHERE summarized = 0
        ORDER BY date DESC
        LIMIT ?;
    `
	if err := tx.SelectContext(ctx, &messages, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error selecting unsummarized messages", "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to select unsummarized messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit batch claim", "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Claimed unsummarized batch", "limit", limit, "count", len(messages))
	return messages, nil
}

func (s *sqlxStore) MarkSummarized(ctx context.Context, rowIDs []int64) error {
	if len(rowIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for marking messages", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	query, args, err := sqlx.In(`UPDATE messages SET summarized = 1 WHERE rowid IN (?)`, rowIDs)
	if err != nil {
		return fmt.Errorf("failed to build query for marking messages: %w", err)
	}

	query = tx.Rebind(query)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error marking messages as summarized", "error", err)
		return fmt.Errorf("failed to mark messages as summarized: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count", "error", err)
	} else if int(affected) != len(rowIDs) {
		s.logger.WarnContext(ctx, "Not all messages were marked as summarized",
			"requested", len(rowIDs), "affected", affected)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Marked messages as summarized", "count", len(rowIDs))
	return nil
}

func (s *sqlxStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages`); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) CountInChat(ctx context.Context, chatID int64) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return 0, fmt.Errorf("failed to count messages for chat %d: %w", chatID, err)
	}
	return count, nil
}

func (s *sqlxStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.GetContext(ctx, &stats.TotalMessages, `SELECT COUNT(*) FROM messages`); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.SummarizedMessages, `SELECT COUNT(*) FROM messages WHERE summarized = 1`); err != nil {
		return nil, fmt.Errorf("failed to count summarized messages: %w", err)
	}

	err := s.db.GetContext(ctx, &stats.LastSummaryDate,
		`SELECT date FROM messages WHERE summarized = 1 ORDER BY date DESC LIMIT 1`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read last summary date: %w", err)
	}

	return stats, nil
}

func (s *sqlxStore) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	var messages []Message
	query := `
        SELECT rowid, id, chat_id, sender, sender_id, text, date, summarized
        FROM messages
        ORDER BY date DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &messages, query, limit); err != nil {
		return nil, fmt.Errorf("failed to select recent messages: %w", err)
	}
	return messages, nil
}
