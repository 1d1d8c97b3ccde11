package models

import (
	"database/sql"
	"time"
)

// Session is one persisted batch-processing run.
type Session struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	SourceFilename string    `json:"filename"`
	CreatedAt      time.Time `json:"upload_date"`
	Total          int       `json:"total_records"`
	ValidCount     int       `json:"valid_records"`
	ErrorCount     int       `json:"error_records"`
	WarningCount   int       `json:"warnings"`
}

// PersistedIdentifier is the stored form of a record. Identifier values are the
// corrected value when one existed, else the raw value.
type PersistedIdentifier struct {
	ID          int64          `json:"id"`
	SessionID   int64          `json:"session_id"`
	RowNumber   int            `json:"row_num"`
	EntityName  string         `json:"entity_name"`
	Identifiers Identifiers    `json:"identifiers"`
	Status      RecordStatus   `json:"status"`
	ErrorCount  int            `json:"error_count"`
	CountryCode sql.NullString `json:"country_code"`
	IssuerCode  sql.NullString `json:"issuer_code"`
}

// ValidationErrorRow is the stored form of a FieldError, joined with the
// record it belongs to.
type ValidationErrorRow struct {
	ID             int64          `json:"id"`
	IdentifierID   int64          `json:"identifier_id"`
	RowNumber      int            `json:"row_num"`
	EntityName     string         `json:"entity_name"`
	Field          string         `json:"field"`
	Message        string         `json:"error_message"`
	Severity       string         `json:"severity"`
	OriginalValue  string         `json:"original_value"`
	CorrectedValue sql.NullString `json:"corrected_value"`
}

// AuditAction names an append-only audit event.
type AuditAction string

const (
	ActionSaveSession   AuditAction = "SAVE_SESSION"
	ActionDeleteSession AuditAction = "DELETE_SESSION"
)

// AuditEntry is one row of audit_log. Entries outlive the sessions they reference.
type AuditEntry struct {
	ID        int64       `json:"id"`
	Action    AuditAction `json:"action"`
	SessionID int64       `json:"session_id"`
	Details   string      `json:"details"`
	Timestamp time.Time   `json:"timestamp"`
}

// QueryTable is one tabular result of an ad-hoc statement.
type QueryTable struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"values"`
}

// QueryResult holds the tables returned by an ad-hoc statement, or the rows
// affected by a statement that returns none.
type QueryResult struct {
	Tables       []QueryTable `json:"tables"`
	RowsAffected int64        `json:"rows_affected"`
}

// DBStats counts the rows held by the store.
type DBStats struct {
	TotalSessions int64 `json:"total_sessions"`
	TotalRecords  int64 `json:"total_records"`
	TotalErrors   int64 `json:"total_errors"`
}
