package services

import (
	"context"
	"io"

	"github.com/username/secid/backend/src/models"
)

// BatchService runs the validation pipeline over delimited input.
type BatchService interface {
	Process(file io.Reader, filename string) (*models.BatchResult, error)
	ProcessText(text string) (*models.BatchResult, error)
}

// SessionStore is the persistence backend behind SessionService.
type SessionStore interface {
	Save(ctx context.Context, name, filename string, result *models.BatchResult) (int64, error)
	Load(ctx context.Context, id int64) (*models.BatchResult, error)
	GetSession(ctx context.Context, id int64) (*models.Session, error)
	ListSessions(ctx context.Context) ([]models.Session, error)
	Delete(ctx context.Context, id int64) error
	RunQuery(ctx context.Context, sqlText string) (*models.QueryResult, error)
	Export(ctx context.Context) ([]byte, error)
	Stats(ctx context.Context) (models.DBStats, error)
	AuditLog(ctx context.Context, limit int) ([]models.AuditEntry, error)
	ErrorLog(ctx context.Context, sessionID int64) ([]models.ValidationErrorRow, error)
}

// SessionService is the cached facade over the session store used by handlers and the CLI.
type SessionService interface {
	SessionStore
	InvalidateCache(sessionID int64)
}
