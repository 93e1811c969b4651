// Package store caches fetched task lists in a local SQLite file so the
// browser views still render offline. The cache is read-only fallback data:
// mutations always go to the backend, never here.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"taskpilot-cli/internal/model"
)

const cacheFileName = "cache.sqlite"

var ErrEmpty = errors.New("cache is empty")

type Cache struct {
	Dir string
}

func (c Cache) Ensure() error {
	return os.MkdirAll(c.Dir, 0o700)
}

func (c Cache) path() string {
	return filepath.Join(c.Dir, cacheFileName)
}

func (c Cache) open(ctx context.Context) (*sql.DB, error) {
	if err := c.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", c.path())
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers (CLI and TUI may overlap);
	// busy_timeout avoids "database is locked" flakiness.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS task_lists (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER NOT NULL,
			doc_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_task_lists_created ON task_lists(created_at_unixms);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Replace swaps the cached snapshot for the given task lists in one
// transaction. Replace-all keeps delete-by-omission trivial: whatever the
// backend no longer returns disappears here too.
func (c Cache) Replace(ctx context.Context, tasks []model.TaskList) error {
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_lists`); err != nil {
		return err
	}
	for _, t := range tasks {
		doc, err := json.Marshal(t)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO task_lists(id, title, created_at_unixms, updated_at_unixms, doc_json)
			 VALUES(?, ?, ?, ?, ?)`,
			t.ID, t.Title, t.CreatedAt.UnixMilli(), t.UpdatedAt.UnixMilli(), string(doc))
		if err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta(k, v) VALUES('fetched_at_unixms', ?)`,
		time.Now().UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}

// Load returns the cached task lists newest-first plus the fetch time.
// ErrEmpty means the cache has never been filled.
func (c Cache) Load(ctx context.Context) ([]model.TaskList, time.Time, error) {
	db, err := c.open(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer db.Close()

	var fetchedMS int64
	err = db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = 'fetched_at_unixms'`).Scan(&fetchedMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrEmpty
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	rows, err := db.QueryContext(ctx, `SELECT doc_json FROM task_lists ORDER BY created_at_unixms DESC`)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	var out []model.TaskList
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, time.Time{}, err
		}
		var t model.TaskList
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, time.Time{}, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}
	return out, time.UnixMilli(fetchedMS), nil
}

// Get returns one cached task list by id.
func (c Cache) Get(ctx context.Context, id string) (model.TaskList, error) {
	db, err := c.open(ctx)
	if err != nil {
		return model.TaskList{}, err
	}
	defer db.Close()

	var raw string
	err = db.QueryRowContext(ctx, `SELECT doc_json FROM task_lists WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TaskList{}, ErrEmpty
	}
	if err != nil {
		return model.TaskList{}, err
	}
	var t model.TaskList
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return model.TaskList{}, err
	}
	return t, nil
}
