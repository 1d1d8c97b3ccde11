package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"github.com/username/secid/backend/src/logger"
)

const (
	memoryPath   = ":memory:"
	flushRetries = 5
)

var errCheckpointBusy = errors.New("wal checkpoint could not complete: database busy")

// SQLite is the store's backing database together with the path it was opened from.
type SQLite struct {
	*sql.DB
	Path string
}

// InitDB opens the database at databasePath and makes sure the schema is current.
func InitDB(ctx context.Context, databasePath string) (*SQLite, error) {
	db, err := Open(databasePath)
	if err != nil {
		return nil, err
	}
	logger.L.Info("Checking database migrations", "databasePath", databasePath)
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Open connects to databasePath with foreign keys enforced and, for file
// databases, write-ahead logging. The pool holds a single connection.
func Open(databasePath string) (*SQLite, error) {
	if databasePath == "" {
		databasePath = memoryPath
	}

	db, err := sql.Open("sqlite", dsn(databasePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", databasePath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database at %s: %w", databasePath, err)
	}
	return &SQLite{DB: db, Path: databasePath}, nil
}

func dsn(path string) string {
	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if path != memoryPath {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(FULL)")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(pragmas, "&")
}

// InMemory reports whether the database lives only for the life of the process.
func (s *SQLite) InMemory() bool {
	return s.Path == memoryPath || strings.Contains(s.Path, "mode=memory")
}

// Flush checkpoints the write-ahead log into the main database file so that
// committed data survives a restart. A checkpoint blocked by a concurrent reader
// is retried with backoff. It is a no-op for in-memory databases.
func (s *SQLite) Flush(ctx context.Context) error {
	if s.InMemory() {
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 20 * time.Millisecond
	eb.MaxElapsedTime = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, flushRetries), ctx)

	return backoff.Retry(func() error {
		var busy, logFrames, checkpointed int
		err := s.QueryRowContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busy, &logFrames, &checkpointed)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("wal checkpoint: %w", err))
		}
		if busy != 0 {
			return errCheckpointBusy
		}
		return nil
	}, policy)
}

// Snapshot returns the whole database in SQLite's native file format.
func (s *SQLite) Snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "secid-export-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	defer os.RemoveAll(dir)

	target := filepath.Join(dir, "snapshot.db")
	if _, err := s.ExecContext(ctx, "VACUUM INTO ?", target); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, nil
}
