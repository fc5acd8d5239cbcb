package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Store is the read-only handle on the SQLite file. Each caller gets its own
// connection from the pool through WithConn.
type Store struct {
	db   *sql.DB
	path string
}

type StoreOptions struct {
	MaxConnections uint8
	// BusyTimeout is passed to SQLite in milliseconds.
	BusyTimeout int
}

// Open opens path in read-only mode with query_only set on every connection.
func Open(ctx context.Context, path string, opts StoreOptions) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrStoreMissing, path)
		}
		return nil, fmt.Errorf("unable to access store %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("store path %s is a directory", path)
	}

	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(%d)",
		filepath.ToSlash(path), busy)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open store %s: %w", path, err)
	}
	if opts.MaxConnections > 0 {
		db.SetMaxOpenConns(int(opts.MaxConnections))
		db.SetMaxIdleConns(int(opts.MaxConnections))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		slog.ErrorContext(ctx, "Store ping failed", "path", path, "error", err)
		return nil, fmt.Errorf("unable to connect to store %s: %w", path, err)
	}

	slog.InfoContext(ctx, "Store opened", "path", path, "max_connections", opts.MaxConnections)

	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

// WithConn runs fn on a dedicated connection and always returns it to the
// pool, including when ctx is canceled or fn fails.
func (s *Store) WithConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			slog.WarnContext(ctx, "Error releasing connection", "error", cerr)
		}
	}()

	return fn(conn)
}

// InUse reports how many connections are currently checked out.
func (s *Store) InUse() int {
	return s.db.Stats().InUse
}

func (s *Store) Close() error {
	return s.db.Close()
}
