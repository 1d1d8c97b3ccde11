// Package store persists validation sessions and rebuilds batch results from them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/username/secid/backend/src/database"
	"github.com/username/secid/backend/src/logger"
	"github.com/username/secid/backend/src/models"
)

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const defaultAuditLimit = 100

// Store is the session store. Callers must not overlap two mutating calls.
type Store struct {
	db  *database.SQLite
	now func() time.Time
}

func New(db *database.SQLite) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", value, err)
	}
	return t, nil
}

// flush makes a committed mutation durable. Failure leaves the mutation in place.
func (s *Store) flush(ctx context.Context, op string) error {
	if err := s.db.Flush(ctx); err != nil {
		logger.L.Warn("Durability flush failed", "op", op, "error", err)
		return &models.DurabilityError{Err: err}
	}
	return nil
}

func storeErr(op string, err error) error {
	logger.L.Error("Store operation failed", "op", op, "error", err)
	return &models.StoreError{Op: op, Err: err}
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// Export returns the whole store in SQLite's native file format.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	data, err := s.db.Snapshot(ctx)
	if err != nil {
		return nil, storeErr("export", err)
	}
	logger.L.Info("Database exported", "bytes", len(data))
	return data, nil
}

// Stats counts sessions, persisted identifiers and validation errors.
func (s *Store) Stats(ctx context.Context) (models.DBStats, error) {
	var stats models.DBStats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM sessions),
		(SELECT COUNT(*) FROM identifiers),
		(SELECT COUNT(*) FROM validation_errors)`).
		Scan(&stats.TotalSessions, &stats.TotalRecords, &stats.TotalErrors)
	if err != nil {
		return models.DBStats{}, storeErr("stats", err)
	}
	return stats, nil
}

// AuditLog returns up to limit audit entries, newest first.
func (s *Store) AuditLog(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, action, session_id, details, timestamp FROM audit_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, storeErr("audit log", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var (
			e         models.AuditEntry
			sessionID sql.NullInt64
			details   sql.NullString
			ts        string
		)
		if err := rows.Scan(&e.ID, &e.Action, &sessionID, &details, &ts); err != nil {
			return nil, storeErr("audit log", err)
		}
		e.SessionID = sessionID.Int64
		e.Details = details.String
		if e.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, storeErr("audit log", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("audit log", err)
	}
	return entries, nil
}

func (s *Store) writeAudit(ctx context.Context, tx *sql.Tx, action models.AuditAction, sessionID int64, details string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO audit_log (action, session_id, details, timestamp) VALUES (?, ?, ?, ?)",
		string(action), sessionID, details, s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// isNotFound reports whether err came from a lookup that matched no row.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
