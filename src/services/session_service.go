// backend/src/services/session_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/secid/backend/src/logger"
	"github.com/username/secid/backend/src/models"
)

const (
	ckSession     = "session_result_%d"
	ckSessionMeta = "session_meta_%d"
	ckSessionList = "session_list"
	ckDBStats     = "db_stats"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type sessionServiceImpl struct {
	store       SessionStore
	reportCache *cache.Cache
}

func NewSessionService(store SessionStore, reportCache *cache.Cache) SessionService {
	return &sessionServiceImpl{store: store, reportCache: reportCache}
}

// NewReportCache builds the cache shared by the session service.
func NewReportCache(ttl time.Duration) *cache.Cache {
	if ttl <= 0 {
		ttl = DefaultCacheExpiration
	}
	return cache.New(ttl, CacheCleanupInterval)
}

// Save persists the result and drops cached listings. A durability warning
// from the store is passed through with the new id.
func (s *sessionServiceImpl) Save(ctx context.Context, name, filename string, result *models.BatchResult) (int64, error) {
	id, err := s.store.Save(ctx, name, filename, result)
	if id != 0 {
		s.InvalidateCache(id)
	}
	return id, err
}

func (s *sessionServiceImpl) Load(ctx context.Context, id int64) (*models.BatchResult, error) {
	key := fmt.Sprintf(ckSession, id)
	if cached, found := s.reportCache.Get(key); found {
		logger.L.Debug("Cache hit for session", "sessionID", id)
		return cached.(*models.BatchResult), nil
	}
	logger.L.Debug("Cache miss for session, loading from store", "sessionID", id)

	result, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.reportCache.SetDefault(key, result)
	return result, nil
}

func (s *sessionServiceImpl) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	key := fmt.Sprintf(ckSessionMeta, id)
	if cached, found := s.reportCache.Get(key); found {
		return cached.(*models.Session), nil
	}
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	s.reportCache.SetDefault(key, sess)
	return sess, nil
}

func (s *sessionServiceImpl) ListSessions(ctx context.Context) ([]models.Session, error) {
	if cached, found := s.reportCache.Get(ckSessionList); found {
		return cached.([]models.Session), nil
	}
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	s.reportCache.SetDefault(ckSessionList, sessions)
	return sessions, nil
}

func (s *sessionServiceImpl) Delete(ctx context.Context, id int64) error {
	err := s.store.Delete(ctx, id)
	s.InvalidateCache(id)
	return err
}

// RunQuery passes the statements to the store and drops the whole cache
// afterwards, whether or not they succeeded.
func (s *sessionServiceImpl) RunQuery(ctx context.Context, sqlText string) (*models.QueryResult, error) {
	result, err := s.store.RunQuery(ctx, sqlText)
	s.reportCache.Flush()
	logger.L.Info("Invalidated all session caches after ad-hoc query")
	return result, err
}

func (s *sessionServiceImpl) Export(ctx context.Context) ([]byte, error) {
	return s.store.Export(ctx)
}

func (s *sessionServiceImpl) Stats(ctx context.Context) (models.DBStats, error) {
	if cached, found := s.reportCache.Get(ckDBStats); found {
		return cached.(models.DBStats), nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return models.DBStats{}, err
	}
	s.reportCache.SetDefault(ckDBStats, stats)
	return stats, nil
}

func (s *sessionServiceImpl) ErrorLog(ctx context.Context, sessionID int64) ([]models.ValidationErrorRow, error) {
	return s.store.ErrorLog(ctx, sessionID)
}

func (s *sessionServiceImpl) AuditLog(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return s.store.AuditLog(ctx, limit)
}

// InvalidateCache drops every cached entry that a change to sessionID can make stale.
func (s *sessionServiceImpl) InvalidateCache(sessionID int64) {
	keysToDelete := []string{
		fmt.Sprintf(ckSession, sessionID),
		fmt.Sprintf(ckSessionMeta, sessionID),
		ckSessionList,
		ckDBStats,
	}
	for _, key := range keysToDelete {
		s.reportCache.Delete(key)
	}
	logger.L.Debug("Invalidated session caches", "sessionID", sessionID)
}
