package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/secid/backend/src/logger"
)

const createTablesStatement = `
CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	filename TEXT,
	upload_date TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	total_records INTEGER NOT NULL DEFAULT 0,
	valid_records INTEGER NOT NULL DEFAULT 0,
	error_records INTEGER NOT NULL DEFAULT 0,
	warnings INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS identifiers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL,
	row_num INTEGER NOT NULL,
	entity_name TEXT,
	isin TEXT,
	cusip TEXT,
	sedol TEXT,
	lei TEXT,
	status TEXT NOT NULL,
	error_count INTEGER NOT NULL DEFAULT 0,
	country_code TEXT,
	issuer_code TEXT,
	FOREIGN KEY(session_id) REFERENCES sessions(id)
);

CREATE TABLE IF NOT EXISTS validation_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	identifier_id INTEGER NOT NULL,
	field TEXT NOT NULL,
	error_message TEXT NOT NULL,
	severity TEXT,
	original_value TEXT,
	corrected_value TEXT,
	FOREIGN KEY(identifier_id) REFERENCES identifiers(id)
);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	action TEXT NOT NULL,
	session_id INTEGER,
	details TEXT,
	timestamp TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_identifiers_session ON identifiers(session_id);
CREATE INDEX IF NOT EXISTS idx_validation_errors_identifier ON validation_errors(identifier_id);
`

// columnMigration adds a column that stores created before it existed lack.
type columnMigration struct {
	table  string
	column string
	ddl    string
}

var columnMigrations = []columnMigration{
	{"sessions", "filename", "ALTER TABLE sessions ADD COLUMN filename TEXT"},
	{"sessions", "warnings", "ALTER TABLE sessions ADD COLUMN warnings INTEGER NOT NULL DEFAULT 0"},
	{"identifiers", "country_code", "ALTER TABLE identifiers ADD COLUMN country_code TEXT"},
	{"identifiers", "issuer_code", "ALTER TABLE identifiers ADD COLUMN issuer_code TEXT"},
	{"validation_errors", "corrected_value", "ALTER TABLE validation_errors ADD COLUMN corrected_value TEXT"},
}

// EnsureSchema creates missing tables and adds columns missing from older stores.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	if err := s.migrateColumns(ctx); err != nil {
		return err
	}
	if _, err := s.ExecContext(ctx, createTablesStatement); err != nil {
		logger.L.Error("failed to create tables", "error", err)
		return fmt.Errorf("failed to create tables: %w", err)
	}
	logger.L.Info("Database tables ensured/created.")
	return nil
}

func (s *SQLite) migrateColumns(ctx context.Context) error {
	existing := map[string]map[string]bool{}
	for _, m := range columnMigrations {
		cols, ok := existing[m.table]
		if !ok {
			var err error
			cols, err = s.tableColumns(ctx, m.table)
			if err != nil {
				return err
			}
			existing[m.table] = cols
		}
		// table will be created with the column
		if cols == nil || cols[m.column] {
			continue
		}
		if _, err := s.ExecContext(ctx, m.ddl); err != nil {
			logger.L.Error("Error adding column", "table", m.table, "column", m.column, "error", err)
			return fmt.Errorf("failed to add %s.%s: %w", m.table, m.column, err)
		}
		logger.L.Info("Added column", "table", m.table, "column", m.column)
	}
	return nil
}

// tableColumns returns the column set of table, or nil if the table does not exist.
func (s *SQLite) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	var name string
	err := s.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check for table %s: %w", table, err)
	}

	rows, err := s.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid, notNull, pk int
		var colName, dataType string
		var dflt any
		if err := rows.Scan(&cid, &colName, &dataType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info of %s: %w", table, err)
		}
		columns[colName] = true
	}
	return columns, rows.Err()
}
