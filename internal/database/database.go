package database

import (
	"database/sql"

	"github.com/lbre/imgbatch/internal/model"
)

// Database is the persistence interface for conversion history.
type Database interface {
	RecordConversion(rec *model.ConversionRecord) error
	Stats() (model.Stats, error)

	// Handle exposes the underlying connection so other stores (the SQLite
	// quota backend) can share it.
	Handle() *sql.DB

	Close() error
}
