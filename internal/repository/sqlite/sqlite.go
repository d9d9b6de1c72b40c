// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of the SQLite C code, so the binary builds without
// CGo and ":memory:" databases make repository tests fast and isolated.
//
// CONNECTION MODEL:
// The pool is capped at ONE open connection. SQLite allows a single writer at a
// time anyway, and an in-memory database only exists on the connection that
// created it. The consequence for every method in this package:
//
//   - never run a query on db.conn while a *sql.Tx or *sql.Rows is still open,
//     it would wait for the only connection forever
//   - multi-statement work goes through withTx and uses the tx exclusively
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/chatmemo.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. Every statement is idempotent.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL,
				updated_at    DATETIME NOT NULL
			);`},
		{"user_settings", `
			CREATE TABLE IF NOT EXISTS user_settings (
				user_id              TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
				user_name            TEXT NOT NULL,
				default_display_mode TEXT NOT NULL DEFAULT 'markdown',
				custom_ai_names      TEXT NOT NULL DEFAULT '[]'
			);`},
		{"snippets", `
			CREATE TABLE IF NOT EXISTS snippets (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title      TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_snippets_user_updated ON snippets(user_id, updated_at);`},
		{"messages", `
			CREATE TABLE IF NOT EXISTS messages (
				id           TEXT PRIMARY KEY,
				snippet_id   TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
				sender       TEXT NOT NULL,
				sender_type  TEXT NOT NULL,
				content      TEXT NOT NULL,
				display_mode TEXT,
				position     INTEGER NOT NULL,
				created_at   DATETIME NOT NULL,
				UNIQUE (snippet_id, position)
			);`},
		{"tags", `
			CREATE TABLE IF NOT EXISTS tags (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name       TEXT NOT NULL,
				color      TEXT,
				created_at DATETIME NOT NULL,
				UNIQUE (user_id, name)
			);`},
		// tag_id does not cascade: DeleteTag clears associations itself.
		{"snippet_tags", `
			CREATE TABLE IF NOT EXISTS snippet_tags (
				snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
				tag_id     TEXT NOT NULL REFERENCES tags(id),
				created_at DATETIME NOT NULL,
				PRIMARY KEY (snippet_id, tag_id)
			);
			CREATE INDEX IF NOT EXISTS idx_snippet_tags_tag ON snippet_tags(tag_id);`},
		{"ai_providers", `
			CREATE TABLE IF NOT EXISTS ai_providers (
				id         TEXT PRIMARY KEY,
				user_id    TEXT REFERENCES users(id) ON DELETE CASCADE,
				name       TEXT NOT NULL,
				icon       TEXT NOT NULL DEFAULT 'bot',
				is_default INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_ai_providers_default_name
				ON ai_providers(name) WHERE user_id IS NULL;
			CREATE UNIQUE INDEX IF NOT EXISTS idx_ai_providers_user_name
				ON ai_providers(user_id, name) WHERE user_id IS NOT NULL;`},
		{"user_active_ais", `
			CREATE TABLE IF NOT EXISTS user_active_ais (
				id             TEXT PRIMARY KEY,
				user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				ai_provider_id TEXT NOT NULL REFERENCES ai_providers(id) ON DELETE CASCADE,
				is_active      INTEGER NOT NULL DEFAULT 1,
				UNIQUE (user_id, ai_provider_id)
			);`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", step.name, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on nil and rolling back otherwise.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// now is the single source of timestamps. SQLite compares DATETIME values as
// text, so everything is stored in UTC.
func now() time.Time {
	return time.Now().UTC()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ querier = (*sql.DB)(nil)
	_ querier = (*sql.Tx)(nil)
)

// isUniqueViolation reports whether err comes from a UNIQUE constraint.
// modernc reports constraint violations only through the message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// expectOne turns "zero rows affected" into notFound.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}

// nullable binds an optional string-like value as TEXT or NULL.
func nullable[T ~string](v *T) any {
	if v == nil {
		return nil
	}
	return string(*v)
}
