// Package database provides the SQLite connection, schema management, and the
// message Store used by the ingestion and summarization pipelines.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/teledigest/teledigest/migrations"

	_ "modernc.org/sqlite"
)

// NewDB opens the SQLite database at dbPath, applies embedded migrations, and
// upgrades any legacy schema in place. Safe to call on every startup; existing
// data is never destroyed.
func NewDB(dbPath string, log *slog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY between
	// the ingestion paths and the summarization cycle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := applyMigrations(db.DB, dbPath, log); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	if err := ensureColumns(db, log); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Error closing database after schema upgrade failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to upgrade schema: %w", err)
	}

	log.Info("Database ready", "path", dbPath)
	return db, nil
}

// CloseDB closes the database connection pool.
func CloseDB(db *sqlx.DB, log *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database connection", "error", err)
	}
}

func applyMigrations(db *sql.DB, dbName string, log *slog.Logger) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug("No database migrations to apply")
			return nil
		}
		return err
	}

	log.Info("Database migrations applied")
	return nil
}

// ensureColumns adds columns that postdate the original deployment to
// databases created before the migration system existed. Purely additive:
// it introspects the live schema and only issues ALTER TABLE for columns
// that are missing.
func ensureColumns(db *sqlx.DB, log *slog.Logger) error {
	rows, err := db.Queryx("PRAGMA table_info(messages)")
	if err != nil {
		return fmt.Errorf("failed to introspect messages table: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("failed to scan table info: %w", err)
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read table info: %w", err)
	}

	additions := []struct {
		column string
		ddl    string
	}{
		{"sender_id", "ALTER TABLE messages ADD COLUMN sender_id INTEGER"},
		{"summarized", "ALTER TABLE messages ADD COLUMN summarized INTEGER NOT NULL DEFAULT 0"},
	}

	for _, add := range additions {
		if _, ok := existing[add.column]; ok {
			continue
		}
		if _, err := db.Exec(add.ddl); err != nil {
			return fmt.Errorf("failed to add column %s: %w", add.column, err)
		}
		log.Info("Added missing column to messages table", "column", add.column)
	}

	return nil
}
