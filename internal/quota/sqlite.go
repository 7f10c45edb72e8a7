package quota

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var _ Store = (*SQLiteStore)(nil)

const quotaSchema = `
CREATE TABLE IF NOT EXISTS quota (
    key TEXT PRIMARY KEY,
    count INTEGER NOT NULL,
    window_start DATETIME NOT NULL
);
`

// SQLiteStore persists quota counters in SQLite so allowances survive
// process restarts. The consume step is a single conditional UPDATE, whose
// affected-row count is the atomic increment-then-compare.
type SQLiteStore struct {
	db    *sql.DB
	limit int
	now   func() time.Time
}

// NewSQLiteStore creates the quota table if needed and returns the store.
func NewSQLiteStore(db *sql.DB, limit int) (*SQLiteStore, error) {
	if _, err := db.Exec(quotaSchema); err != nil {
		return nil, fmt.Errorf("creating quota table: %w", err)
	}
	return &SQLiteStore{db: db, limit: limit, now: time.Now}, nil
}

// Allow consumes one unit for key if the daily limit permits.
func (s *SQLiteStore) Allow(ctx context.Context, key string) (bool, error) {
	window := windowStart(s.now()).Format(time.RFC3339)

	// Reset an elapsed window, then make sure the row exists. Both
	// statements are idempotent and individually atomic.
	_, err := s.db.ExecContext(ctx,
		`UPDATE quota SET count = 0, window_start = ? WHERE key = ? AND window_start < ?`,
		window, key, window,
	)
	if err != nil {
		return false, fmt.Errorf("resetting quota window: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quota (key, count, window_start) VALUES (?, 0, ?) ON CONFLICT(key) DO NOTHING`,
		key, window,
	)
	if err != nil {
		return false, fmt.Errorf("creating quota row: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE quota SET count = count + 1 WHERE key = ? AND count < ?`,
		key, s.limit,
	)
	if err != nil {
		return false, fmt.Errorf("incrementing quota: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading quota result: %w", err)
	}
	return n == 1, nil
}
