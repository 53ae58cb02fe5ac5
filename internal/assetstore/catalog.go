package assetstore

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS assets (
	path       TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	digest     TEXT NOT NULL,
	size       INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS assets_kind ON assets(kind);
`

var catalogPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

// Entry is one catalog row.
type Entry struct {
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Digest    string    `json:"digest"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// catalog indexes stored assets in SQLite.
type catalog struct {
	pool *sqlitex.Pool
}

func openCatalog(path string, poolSize int) (*catalog, error) {
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	return &catalog{pool: pool}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	for _, pragma := range catalogPragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return sqlitex.ExecuteScript(conn, catalogSchema, nil)
}

func (c *catalog) close() error {
	return c.pool.Close()
}

func (c *catalog) exists(ctx context.Context, path string) (bool, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return false, err
	}
	defer c.pool.Put(conn)

	found := false
	err = sqlitex.Execute(conn, "SELECT 1 FROM assets WHERE path = ?", &sqlitex.ExecOptions{
		Args: []any{path},
		ResultFunc: func(*sqlite.Stmt) error {
			found = true
			return nil
		},
	})
	return found, err
}

// insert adds a row. It returns ErrExists if path is already catalogued.
func (c *catalog) insert(ctx context.Context, e Entry) error {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer c.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO assets (path, kind, name, digest, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO NOTHING`,
		&sqlitex.ExecOptions{
			Args: []any{e.Path, e.Kind, e.Name, e.Digest, e.Size, e.CreatedAt.UnixMilli()},
		})
	if err != nil {
		return fmt.Errorf("cataloguing %s: %w", e.Path, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("%w: %s", ErrExists, e.Path)
	}
	return nil
}

// list returns rows of the given kind, or all rows when kind is 0,
// oldest first.
func (c *catalog) list(ctx context.Context, kind Kind) ([]Entry, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Put(conn)

	query := "SELECT path, kind, name, digest, size, created_at FROM assets"
	var args []any
	if kind != 0 {
		query += " WHERE kind = ?"
		args = append(args, kind.String())
	}
	query += " ORDER BY created_at, path"

	var entries []Entry
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entries = append(entries, Entry{
				Path:      stmt.ColumnText(0),
				Kind:      stmt.ColumnText(1),
				Name:      stmt.ColumnText(2),
				Digest:    stmt.ColumnText(3),
				Size:      stmt.ColumnInt64(4),
				CreatedAt: time.UnixMilli(stmt.ColumnInt64(5)).UTC(),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	return entries, nil
}
