// Package journal keeps a local SQLite mirror of parsed expense records.
// It is a best-effort audit trail alongside the remote sink: append failures
// are logged and never change the user-visible outcome.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"kakeibot/internal/domain"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed record journal.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Entry is one journaled record.
type Entry struct {
	ID          int64
	Amount      int
	Category    string
	Description string
	CreatedAt   time.Time
}

func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create journal directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open journal: %w", err)
	}

	// Single connection: SQLite writes are serialized anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		amount      INTEGER NOT NULL,
		category    TEXT,
		description TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_records_time ON records(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores one record.
func (s *Store) Append(ctx context.Context, rec domain.ParsedRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (amount, category, description, created_at) VALUES (?, ?, ?, ?)`,
		rec.Amount, rec.Category, rec.Description, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, category, description, created_at
		 FROM records ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Amount, &e.Category, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Total returns the sum of all journaled amounts.
func (s *Store) Total(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT SUM(amount) FROM records`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("journal total: %w", err)
	}
	return total.Int64, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
