package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lbre/imgbatch/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements Database backed by SQLite.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (or creates) an SQLite database at dsn and runs
// migrations. For in-memory use pass "file::memory:?cache=shared".
func NewSQLiteDB(dsn string) (*SQLiteDB, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	} else if !strings.Contains(dsn, "_journal_mode") {
		dsn += "&_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Handle exposes the underlying connection.
func (s *SQLiteDB) Handle() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *SQLiteDB) Close() error { return s.db.Close() }

// RecordConversion inserts one history row.
func (s *SQLiteDB) RecordConversion(rec *model.ConversionRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO conversions (id, client_key, file_count, format, status, error_code, bytes_in, bytes_out, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ClientKey, rec.FileCount, rec.Format, rec.Status, rec.ErrorCode,
		rec.BytesIn, rec.BytesOut, rec.Duration.Milliseconds(),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	return nil
}

// Stats aggregates the conversion history.
func (s *SQLiteDB) Stats() (model.Stats, error) {
	var st model.Stats
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(bytes_in), 0),
		       COALESCE(SUM(bytes_out), 0)
		FROM conversions`,
		model.StatusOK, model.StatusFailed,
	).Scan(&st.Total, &st.Succeeded, &st.Failed, &st.BytesIn, &st.BytesOut)
	if err != nil {
		return model.Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return st, nil
}
