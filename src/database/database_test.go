package database

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *SQLite {
	t.Helper()
	db, err := InitDB(context.Background(), filepath.Join(t.TempDir(), "secid.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitDB_CreatesTables(t *testing.T) {
	db := openTemp(t)

	for _, table := range []string{"sessions", "identifiers", "validation_errors", "audit_log"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}

	// running again is harmless
	require.NoError(t, db.EnsureSchema(context.Background()))
}

func TestOpen_ForeignKeysEnforced(t *testing.T) {
	db := openTemp(t)

	var enabled int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)

	_, err := db.Exec("INSERT INTO identifiers (session_id, row_num, status) VALUES (999, 2, 'VALID')")
	assert.Error(t, err)
}

func TestOpen_WALForFiles(t *testing.T) {
	db := openTemp(t)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
	assert.False(t, db.InMemory())
}

func TestOpen_InMemory(t *testing.T) {
	db, err := InitDB(context.Background(), "")
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.InMemory())
	assert.NoError(t, db.Flush(context.Background()))

	_, err = db.Exec("INSERT INTO sessions (name) VALUES ('mem')")
	require.NoError(t, err)
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestFlush_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")
	ctx := context.Background()

	db, err := InitDB(ctx, path)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO sessions (name, filename) VALUES ('kept', 'a.csv')")
	require.NoError(t, err)
	require.NoError(t, db.Flush(ctx))
	require.NoError(t, db.Close())

	reopened, err := InitDB(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	var name string
	require.NoError(t, reopened.QueryRow("SELECT name FROM sessions").Scan(&name))
	assert.Equal(t, "kept", name)
}

func TestSnapshot_NativeFormat(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	_, err := db.Exec("INSERT INTO sessions (name) VALUES ('snap')")
	require.NoError(t, err)

	data, err := db.Snapshot(ctx)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("SQLite format 3\x00")))

	// the snapshot is a complete database on its own
	copyPath := filepath.Join(t.TempDir(), "copy.db")
	require.NoError(t, os.WriteFile(copyPath, data, 0o600))
	restored, err := sql.Open("sqlite", copyPath)
	require.NoError(t, err)
	defer restored.Close()

	var name string
	require.NoError(t, restored.QueryRow("SELECT name FROM sessions").Scan(&name))
	assert.Equal(t, "snap", name)
}

func TestEnsureSchema_MigratesOldSessionsTable(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "old.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		upload_date TEXT NOT NULL,
		total_records INTEGER, valid_records INTEGER, error_records INTEGER)`)
	require.NoError(t, err)

	require.NoError(t, db.EnsureSchema(ctx))

	cols, err := db.tableColumns(ctx, "sessions")
	require.NoError(t, err)
	assert.True(t, cols["filename"])
	assert.True(t, cols["warnings"])
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dsn(":memory:"))
	assert.Contains(t, dsn("a.db"), "a.db?_pragma=foreign_keys(1)")
	assert.Contains(t, dsn("a.db"), "journal_mode(WAL)")
	assert.Contains(t, dsn("file:a.db?cache=shared"), "cache=shared&_pragma=foreign_keys(1)")
}

func mockSQLite(t *testing.T) (*SQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &SQLite{DB: db, Path: "mock.db"}, mock
}

func checkpointRows(busy int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"busy", "log", "checkpointed"}).AddRow(busy, 0, 0)
}

func TestFlush_RetriesBusyCheckpoint(t *testing.T) {
	db, mock := mockSQLite(t)
	checkpoint := regexp.QuoteMeta("PRAGMA wal_checkpoint(TRUNCATE)")
	mock.ExpectQuery(checkpoint).WillReturnRows(checkpointRows(1))
	mock.ExpectQuery(checkpoint).WillReturnRows(checkpointRows(0))

	require.NoError(t, db.Flush(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlush_GivesUpWhenAlwaysBusy(t *testing.T) {
	db, mock := mockSQLite(t)
	checkpoint := regexp.QuoteMeta("PRAGMA wal_checkpoint(TRUNCATE)")
	for i := 0; i <= flushRetries; i++ {
		mock.ExpectQuery(checkpoint).WillReturnRows(checkpointRows(1))
	}

	err := db.Flush(context.Background())
	assert.ErrorIs(t, err, errCheckpointBusy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlush_QueryErrorIsNotRetried(t *testing.T) {
	db, mock := mockSQLite(t)
	mock.ExpectQuery(regexp.QuoteMeta("PRAGMA wal_checkpoint(TRUNCATE)")).
		WillReturnError(errors.New("disk I/O error"))

	err := db.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
