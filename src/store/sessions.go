package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/username/secid/backend/src/logger"
	"github.com/username/secid/backend/src/models"
	"github.com/username/secid/backend/src/processors"
)

const (
	insertSessionSQL = `INSERT INTO sessions
		(name, filename, upload_date, total_records, valid_records, error_records, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	insertIdentifierSQL = `INSERT INTO identifiers
		(session_id, row_num, entity_name, isin, cusip, sedol, lei, status, error_count, country_code, issuer_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertValidationErrorSQL = `INSERT INTO validation_errors
		(identifier_id, field, error_message, severity, original_value, corrected_value)
		VALUES (?, ?, ?, ?, ?, ?)`
	selectSessionColumns = `SELECT id, name, filename, upload_date, total_records, valid_records, error_records, warnings FROM sessions`
)

// Save persists result as a new session in one transaction and returns its id.
// A *models.DurabilityError is returned together with the id when the commit
// succeeded but the flush to disk did not.
func (s *Store) Save(ctx context.Context, name, filename string, result *models.BatchResult) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, &models.ValidationError{Field: "name", Msg: "name required"}
	}
	if result == nil {
		return 0, &models.ValidationError{Field: "result", Msg: "nothing to save"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("save session", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, insertSessionSQL,
		name, filename, s.timestamp(),
		result.Total, result.ValidCount, result.ErrorCount, result.WarningCount)
	if err != nil {
		return 0, storeErr("save session", fmt.Errorf("failed to insert session: %w", err))
	}
	sessionID, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("save session", err)
	}

	identStmt, err := tx.PrepareContext(ctx, insertIdentifierSQL)
	if err != nil {
		return 0, storeErr("save session", fmt.Errorf("failed to prepare identifier insert: %w", err))
	}
	defer identStmt.Close()

	errStmt, err := tx.PrepareContext(ctx, insertValidationErrorSQL)
	if err != nil {
		return 0, storeErr("save session", fmt.Errorf("failed to prepare error insert: %w", err))
	}
	defer errStmt.Close()

	records := result.AllRecords()
	for _, r := range records {
		res, err := identStmt.ExecContext(ctx,
			sessionID, r.RowNumber, r.EntityName,
			r.PreferredValue(models.KindISIN),
			r.PreferredValue(models.KindCUSIP),
			r.PreferredValue(models.KindSEDOL),
			r.PreferredValue(models.KindLEI),
			string(r.Status()), len(r.Errors),
			nullable(r.MetadataValue(models.KindISIN, models.MetaCountryCode)),
			nullable(r.MetadataValue(models.KindCUSIP, models.MetaIssuerCode)))
		if err != nil {
			return 0, storeErr("save session", fmt.Errorf("failed to insert row %d: %w", r.RowNumber, err))
		}
		identifierID, err := res.LastInsertId()
		if err != nil {
			return 0, storeErr("save session", err)
		}

		for _, fe := range r.Errors {
			_, err := errStmt.ExecContext(ctx,
				identifierID, string(fe.Field), fe.Message, string(fe.Severity),
				r.Identifiers.Get(fe.Field), nullable(r.Corrected[fe.Field]))
			if err != nil {
				return 0, storeErr("save session", fmt.Errorf("failed to insert error for row %d: %w", r.RowNumber, err))
			}
		}
	}

	if err := s.writeAudit(ctx, tx, models.ActionSaveSession, sessionID, fmt.Sprintf("Saved %d records", len(records))); err != nil {
		return 0, storeErr("save session", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr("save session", fmt.Errorf("failed to commit: %w", err))
	}

	logger.L.Info("Session saved", "sessionID", sessionID, "name", name, "records", len(records))
	return sessionID, s.flush(ctx, "save session")
}

// GetSession returns the summary row of one session.
func (s *Store) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, selectSessionColumns+" WHERE id = ?", id)
	sess, err := scanSession(row)
	if isNotFound(err) {
		return nil, &models.NotFoundError{Resource: "session", ID: id}
	}
	if err != nil {
		return nil, storeErr("get session", err)
	}
	return sess, nil
}

// ListSessions returns every session, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, selectSessionColumns+" ORDER BY upload_date DESC, id DESC")
	if err != nil {
		return nil, storeErr("list sessions", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, storeErr("list sessions", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list sessions", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		sess     models.Session
		filename sql.NullString
		created  string
	)
	err := row.Scan(&sess.ID, &sess.Name, &filename, &created,
		&sess.Total, &sess.ValidCount, &sess.ErrorCount, &sess.WarningCount)
	if err != nil {
		return nil, err
	}
	sess.SourceFilename = filename.String
	if sess.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Load rebuilds the batch result of a stored session. Summary counts come from the
// session row; presence counts are recomputed. Corrections and metadata other than
// country and issuer codes are not stored, so reloaded records carry none.
func (s *Store) Load(ctx context.Context, id int64) (*models.BatchResult, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	identifiers, err := s.loadIdentifiers(ctx, id)
	if err != nil {
		return nil, storeErr("load session", err)
	}
	fieldErrors, err := s.loadFieldErrors(ctx, id)
	if err != nil {
		return nil, storeErr("load session", err)
	}

	result := &models.BatchResult{
		Total:        sess.Total,
		ValidCount:   sess.ValidCount,
		ErrorCount:   sess.ErrorCount,
		WarningCount: sess.WarningCount,
		ValidRecords: []models.Record{},
		ErrorRecords: []models.Record{},
		Warnings:     []models.WarningEntry{},
	}
	all := make([]models.Record, 0, len(identifiers))
	for _, pi := range identifiers {
		r := models.NewRecord(pi.RowNumber, pi.EntityName, pi.Identifiers)
		if errs, ok := fieldErrors[pi.ID]; ok {
			r.Errors = errs
		}
		if pi.CountryCode.Valid {
			r.Metadata[models.KindISIN] = map[string]string{models.MetaCountryCode: pi.CountryCode.String}
		}
		if pi.IssuerCode.Valid {
			r.Metadata[models.KindCUSIP] = map[string]string{models.MetaIssuerCode: pi.IssuerCode.String}
		}

		if pi.Status == models.StatusError {
			result.ErrorRecords = append(result.ErrorRecords, r)
		} else {
			result.ValidRecords = append(result.ValidRecords, r)
		}
		all = append(all, r)
	}
	result.Presence = processors.CountPresence(all)

	logger.L.Debug("Session loaded", "sessionID", id, "records", len(all))
	return result, nil
}

func (s *Store) loadIdentifiers(ctx context.Context, sessionID int64) ([]models.PersistedIdentifier, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, session_id, row_num, entity_name, isin, cusip, sedol, lei,
		status, error_count, country_code, issuer_code
		FROM identifiers WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query identifiers: %w", err)
	}
	defer rows.Close()

	var out []models.PersistedIdentifier
	for rows.Next() {
		var (
			pi                models.PersistedIdentifier
			name, isin, cusip sql.NullString
			sedol, lei        sql.NullString
			status            string
		)
		if err := rows.Scan(&pi.ID, &pi.SessionID, &pi.RowNumber, &name, &isin, &cusip, &sedol, &lei,
			&status, &pi.ErrorCount, &pi.CountryCode, &pi.IssuerCode); err != nil {
			return nil, fmt.Errorf("failed to scan identifier: %w", err)
		}
		pi.EntityName = name.String
		pi.Identifiers = models.Identifiers{ISIN: isin.String, CUSIP: cusip.String, SEDOL: sedol.String, LEI: lei.String}
		pi.Status = models.RecordStatus(status)
		out = append(out, pi)
	}
	return out, rows.Err()
}

func (s *Store) loadFieldErrors(ctx context.Context, sessionID int64) (map[int64][]models.FieldError, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ve.identifier_id, ve.field, ve.error_message, ve.severity
		FROM validation_errors ve JOIN identifiers i ON ve.identifier_id = i.id
		WHERE i.session_id = ? ORDER BY ve.id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation errors: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.FieldError)
	for rows.Next() {
		var (
			identifierID int64
			field, msg   string
			severity     sql.NullString
		)
		if err := rows.Scan(&identifierID, &field, &msg, &severity); err != nil {
			return nil, fmt.Errorf("failed to scan validation error: %w", err)
		}
		kind, ok := models.ParseIdentifierKind(field)
		if !ok {
			kind = models.IdentifierKind(field)
		}
		out[identifierID] = append(out[identifierID], models.FieldError{
			Field:    kind,
			Message:  msg,
			Severity: models.Severity(severity.String),
		})
	}
	return out, rows.Err()
}

// ErrorLog returns the stored errors of a session in row order, with the values
// as submitted and as corrected at validation time.
func (s *Store) ErrorLog(ctx context.Context, sessionID int64) ([]models.ValidationErrorRow, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT ve.id, ve.identifier_id, i.row_num, i.entity_name,
		ve.field, ve.error_message, ve.severity, ve.original_value, ve.corrected_value
		FROM validation_errors ve JOIN identifiers i ON ve.identifier_id = i.id
		WHERE i.session_id = ? ORDER BY i.row_num, ve.id`, sessionID)
	if err != nil {
		return nil, storeErr("error log", err)
	}
	defer rows.Close()

	out := []models.ValidationErrorRow{}
	for rows.Next() {
		var (
			ve             models.ValidationErrorRow
			name, severity sql.NullString
			original       sql.NullString
		)
		if err := rows.Scan(&ve.ID, &ve.IdentifierID, &ve.RowNumber, &name,
			&ve.Field, &ve.Message, &severity, &original, &ve.CorrectedValue); err != nil {
			return nil, storeErr("error log", err)
		}
		ve.EntityName = name.String
		ve.Severity = severity.String
		ve.OriginalValue = original.String
		out = append(out, ve)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("error log", err)
	}
	return out, nil
}

// Delete removes a session with its identifiers and their errors, children first,
// and records the deletion in the audit log. Unknown ids are not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("delete session", err)
	}
	defer tx.Rollback()

	steps := []struct {
		what  string
		query string
	}{
		{"validation errors", "DELETE FROM validation_errors WHERE identifier_id IN (SELECT id FROM identifiers WHERE session_id = ?)"},
		{"identifiers", "DELETE FROM identifiers WHERE session_id = ?"},
		{"session", "DELETE FROM sessions WHERE id = ?"},
	}
	var removed int64
	for _, step := range steps {
		res, err := tx.ExecContext(ctx, step.query, id)
		if err != nil {
			return storeErr("delete session", fmt.Errorf("failed to delete %s: %w", step.what, err))
		}
		if step.what == "session" {
			removed, _ = res.RowsAffected()
		}
	}

	if err := s.writeAudit(ctx, tx, models.ActionDeleteSession, id, "Session deleted"); err != nil {
		return storeErr("delete session", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("delete session", fmt.Errorf("failed to commit: %w", err))
	}

	logger.L.Info("Session deleted", "sessionID", id, "existed", removed > 0)
	return s.flush(ctx, "delete session")
}
