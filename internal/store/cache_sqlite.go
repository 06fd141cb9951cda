package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kanban-cli/internal/model"

	_ "modernc.org/sqlite"
)

const cacheFileName = "cache.sqlite"

// BoardSnapshot is one hydrated board as persisted in the offline cache.
type BoardSnapshot struct {
	Board    model.Board  `json:"board"`
	Lists    []model.List `json:"lists"`
	Cards    []model.Card `json:"cards"`
	CachedAt time.Time    `json:"cachedAt"`
}

// Cache keeps the last hydrated state of each board so the CLI/TUI can show something
// before (or without) reaching the backend. The backend stays authoritative.
type Cache struct {
	Dir string
}

// DefaultCache returns the cache rooted in the config dir.
func DefaultCache() (Cache, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Cache{}, err
	}
	return Cache{Dir: dir}, nil
}

func (c Cache) path() string {
	return filepath.Join(c.Dir, cacheFileName)
}

func (c Cache) open(ctx context.Context) (*sql.DB, error) {
	if strings.TrimSpace(c.Dir) == "" {
		return nil, errors.New("cache: missing dir")
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", c.path())
	if err != nil {
		return nil, err
	}
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
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS boards (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		json TEXT NOT NULL,
		updated_at_unixms INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (c Cache) SaveBoard(ctx context.Context, snap BoardSnapshot) error {
	id := strings.TrimSpace(snap.Board.ID)
	if id == "" {
		return errors.New("cache: missing board id")
	}
	if snap.CachedAt.IsZero() {
		snap.CachedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, `INSERT OR REPLACE INTO boards(id, title, json, updated_at_unixms) VALUES(?, ?, ?, ?)`,
		id, snap.Board.Title, string(raw), snap.CachedAt.UnixMilli())
	return err
}

// LoadBoard returns the cached snapshot; ok is false when the board was never cached.
func (c Cache) LoadBoard(ctx context.Context, boardID string) (BoardSnapshot, bool, error) {
	db, err := c.open(ctx)
	if err != nil {
		return BoardSnapshot{}, false, err
	}
	defer db.Close()

	var raw string
	err = db.QueryRowContext(ctx, `SELECT json FROM boards WHERE id = ?`, strings.TrimSpace(boardID)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return BoardSnapshot{}, false, nil
	}
	if err != nil {
		return BoardSnapshot{}, false, err
	}
	var snap BoardSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return BoardSnapshot{}, false, err
	}
	return snap, true, nil
}

// ListBoards returns the cached boards (board header only), most recently cached first.
func (c Cache) ListBoards(ctx context.Context) ([]model.Board, error) {
	db, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT json FROM boards ORDER BY updated_at_unixms DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Board{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var snap BoardSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, err
		}
		out = append(out, snap.Board)
	}
	return out, rows.Err()
}

func (c Cache) DeleteBoard(ctx context.Context, boardID string) error {
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, strings.TrimSpace(boardID))
	return err
}

// Hydrate loads a cached snapshot into the entity store, replacing that board's subtree.
func (snap BoardSnapshot) Hydrate(s *Entities) {
	s.Batch(func(tx *Tx) {
		tx.ReplaceBoard(snap.Board, snap.Lists, snap.Cards)
	})
}
