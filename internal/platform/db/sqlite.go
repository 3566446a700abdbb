package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the SQLite database file at path and returns the handle the
// gateway owns for the process lifetime. The pool is capped at a single
// connection so at most one statement is ever in flight, matching the
// single-writer model of the backend.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	handle, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("platform/db: open %s: %w", path, err)
	}

	handle.SetMaxOpenConns(1)

	// WAL keeps readers from blocking the writer during a save sequence.
	if _, err := handle.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		handle.Close()
		return nil, fmt.Errorf("platform/db: set WAL mode: %w", err)
	}
	if _, err := handle.ExecContext(ctx, `PRAGMA foreign_keys=ON`); err != nil {
		handle.Close()
		return nil, fmt.Errorf("platform/db: enable foreign keys: %w", err)
	}

	if err := handle.PingContext(ctx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return handle, nil
}
