package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type DB struct {
	db *sql.DB
}

func NewDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Synchronous durability: Append must not return before the write
	// is on disk.
	if _, err := db.Exec("PRAGMA synchronous = FULL"); err != nil {
		return nil, fmt.Errorf("set synchronous mode: %w", err)
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id INTEGER NOT NULL,
		message_id INTEGER NOT NULL,
		poll_type TEXT NOT NULL,
		participants TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		pinned INTEGER NOT NULL DEFAULT 0,
		unpin_on_close INTEGER NOT NULL DEFAULT 0,
		delete_votes INTEGER NOT NULL DEFAULT 0
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_history_group_message ON history(group_id, message_id);
	CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at DESC);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

func (d *DB) DB() *sql.DB {
	return d.db
}
