package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite keeps the snapshot as rows of the jobs table. Each Save rewrites
// the table inside one transaction.
type SQLite struct {
	DB *sql.DB
}

func NewSQLiteStore(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode (important for concurrency)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLite{DB: db}, nil
}

func (s *SQLite) Close() error {
	return s.DB.Close()
}

func runMigrations(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS jobs (
  position INTEGER PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  data TEXT,
  status TEXT NOT NULL CHECK (status IN ('pending','completed','failed')),
  result TEXT,
  error TEXT,
  worker_id INTEGER NOT NULL DEFAULT 0,
  attempts INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  completed_at TEXT,
  retry_at TEXT
);
`
	_, err := db.Exec(schema)
	return err
}
