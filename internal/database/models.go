package database

import "time"

// Message is the canonical persisted unit: one captured Telegram message.
//
// MessageID is the platform-assigned id and is only unique together with
// ChatID; RowID is the SQLite rowid and identifies the row itself.
type Message struct {
	RowID int64 `db:"rowid"`

	MessageID int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Sender    string    `db:"sender"`
	SenderID  int64     `db:"sender_id"`
	Text      string    `db:"text"`
	Date      time.Time `db:"date"`

	Summarized bool `db:"summarized"`
}

// Stats is the aggregate view served by the dashboard.
type Stats struct {
	TotalMessages      int64
	SummarizedMessages int64

	// LastSummaryDate is the newest message date among summarized rows.
	// Zero when nothing has been summarized yet.
	LastSummaryDate time.Time
}
