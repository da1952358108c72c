package gallery

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver" // SQLite driver
	_ "github.com/ncruces/go-sqlite3/embed"  // Embed SQLite
)

// Entry is one registered asset in the media library.
type Entry struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Index is the media library itself: a SQLite table of registered assets.
// Registration makes a file visible to the library; it does not touch the
// file's bytes.
type Index struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS assets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	kind TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// OpenIndex opens (and if needed initializes) the media index at dbPath.
func OpenIndex(dbPath string) (*Index, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("index database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to index database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize index schema: %w", err)
	}

	return &Index{db: db}, nil
}

// Register inserts an asset row for path.
func (i *Index) Register(ctx context.Context, path, kind string) error {
	_, err := i.db.ExecContext(ctx,
		"INSERT INTO assets (path, kind) VALUES (?, ?)", path, kind)
	if err != nil {
		return fmt.Errorf("register asset: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (i *Index) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := i.db.QueryContext(ctx,
		"SELECT id, path, kind, created_at FROM assets ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Path, &e.Kind, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (i *Index) Close() error {
	return i.db.Close()
}
