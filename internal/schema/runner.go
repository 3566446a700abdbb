// Package schema creates and evolves the database schema on every startup.
// The schema is additive only: columns are never removed, and a DDL failure
// during creation is swallowed rather than parsed for backend-specific
// "already exists" codes.
package schema

import (
	"context"
	"database/sql"
	"log/slog"
)

// Executor is the statement surface the runner needs; the gateway satisfies it.
type Executor interface {
	Write(ctx context.Context, stmt string, args ...any) (sql.Result, error)
}

// Runner applies table creation, additive migrations and one-time backfills.
type Runner struct {
	exec Executor
	log  *slog.Logger
}

// NewRunner constructs a Runner.
func NewRunner(exec Executor, log *slog.Logger) *Runner {
	return &Runner{exec: exec, log: log}
}

var createTables = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		zip TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		code TEXT NOT NULL DEFAULT '',
		unit_price REAL NOT NULL DEFAULT 0,
		tax_rate INTEGER NOT NULL DEFAULT 10,
		stock INTEGER NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY,
		client_id INTEGER NOT NULL,
		invoice_date TEXT NOT NULL,
		due_date TEXT,
		total_amount REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'Unpaid',
		items TEXT NOT NULL DEFAULT '[]',
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice_id INTEGER NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		product_id INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 0,
		unit_price REAL NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT '',
		item_date TEXT,
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS estimates (
		id INTEGER PRIMARY KEY,
		client_id INTEGER NOT NULL,
		estimate_date TEXT NOT NULL,
		due_date TEXT,
		total_amount REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'Draft',
		items TEXT NOT NULL DEFAULT '[]',
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS estimate_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		estimate_id INTEGER NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
		product_id INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 0,
		unit_price REAL NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT '',
		item_date TEXT,
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS units (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT '{}'
	)`,
}

// addColumns is the fixed, ordered list of additive migrations. Each entry is
// independently guarded so one failure (typically "duplicate column name" on
// an already-migrated file) does not block the rest.
var addColumns = []string{
	`ALTER TABLE products ADD COLUMN project TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE products ADD COLUMN client_ids TEXT NOT NULL DEFAULT '[]'`,
	`ALTER TABLE invoice_items ADD COLUMN project TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE invoice_items ADD COLUMN tax_rate INTEGER NOT NULL DEFAULT 10`,
	`ALTER TABLE estimate_items ADD COLUMN project TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE estimate_items ADD COLUMN tax_rate INTEGER NOT NULL DEFAULT 10`,
}

// Ensure creates all tables, applies additive column migrations and runs the
// one-time project backfill. Idempotent and safe to call on every startup; it
// never assumes exclusive access to the file.
func (r *Runner) Ensure(ctx context.Context) error {
	for _, stmt := range createTables {
		if _, err := r.exec.Write(ctx, stmt); err != nil {
			r.log.Debug("table creation skipped", slog.String("error", err.Error()))
		}
	}
	for _, stmt := range addColumns {
		if _, err := r.exec.Write(ctx, stmt); err != nil {
			r.log.Debug("column migration skipped", slog.String("error", err.Error()))
		}
	}
	r.backfillProjects(ctx)
	return nil
}

// backfillProjects populates the projects lookup table from the distinct
// non-empty project tags already denormalized onto products.
func (r *Runner) backfillProjects(ctx context.Context) {
	const stmt = `INSERT OR IGNORE INTO projects (name)
		SELECT DISTINCT project FROM products WHERE project <> ''`
	if _, err := r.exec.Write(ctx, stmt); err != nil {
		r.log.Debug("project backfill skipped", slog.String("error", err.Error()))
	}
}
