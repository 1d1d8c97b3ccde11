package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/secid/backend/src/database"
	"github.com/username/secid/backend/src/models"
	"github.com/username/secid/backend/src/store"
)

// countingStore records how often reads reach the underlying store.
type countingStore struct {
	SessionStore
	loads, lists, stats int
}

func (c *countingStore) Load(ctx context.Context, id int64) (*models.BatchResult, error) {
	c.loads++
	return c.SessionStore.Load(ctx, id)
}

func (c *countingStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	c.lists++
	return c.SessionStore.ListSessions(ctx)
}

func (c *countingStore) Stats(ctx context.Context) (models.DBStats, error) {
	c.stats++
	return c.SessionStore.Stats(ctx)
}

func newSessionService(t *testing.T) (SessionService, *countingStore) {
	t.Helper()
	db, err := database.InitDB(context.Background(), filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	backing := &countingStore{SessionStore: store.New(db)}
	return NewSessionService(backing, NewReportCache(time.Minute)), backing
}

func processed(t *testing.T, text string) *models.BatchResult {
	t.Helper()
	result, err := newBatchService().ProcessText(text)
	require.NoError(t, err)
	return result
}

func TestSessionService_LoadIsCached(t *testing.T) {
	svc, backing := newSessionService(t)
	ctx := context.Background()

	id, err := svc.Save(ctx, "cached", "c.csv", processed(t, "name,isin\nAcme,US0378331004\n"))
	require.NoError(t, err)

	first, err := svc.Load(ctx, id)
	require.NoError(t, err)
	second, err := svc.Load(ctx, id)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, backing.loads)
	assert.Equal(t, 1, first.ErrorCount)
}

func TestSessionService_SaveInvalidatesListAndStats(t *testing.T) {
	svc, backing := newSessionService(t)
	ctx := context.Background()

	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	_, err = svc.Stats(ctx)
	require.NoError(t, err)

	_, err = svc.Save(ctx, "one", "", processed(t, "isin\nUS0378331005\n"))
	require.NoError(t, err)

	sessions, err = svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalSessions)

	assert.Equal(t, 2, backing.lists)
	assert.Equal(t, 2, backing.stats)

	_, err = svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, backing.lists)
}

func TestSessionService_DeleteInvalidates(t *testing.T) {
	svc, _ := newSessionService(t)
	ctx := context.Background()

	id, err := svc.Save(ctx, "gone", "", processed(t, "isin\nUS0378331005\n"))
	require.NoError(t, err)
	_, err = svc.Load(ctx, id)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, id))

	_, err = svc.Load(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.GetSession(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSessionService_WriteQueryFlushesCache(t *testing.T) {
	svc, backing := newSessionService(t)
	ctx := context.Background()

	id, err := svc.Save(ctx, "before", "", processed(t, "isin\nUS0378331005\n"))
	require.NoError(t, err)
	_, err = svc.Load(ctx, id)
	require.NoError(t, err)

	res, err := svc.RunQuery(ctx, "UPDATE identifiers SET entity_name = 'patched'")
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.RowsAffected)

	reloaded, err := svc.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "patched", reloaded.ValidRecords[0].EntityName)
	assert.Equal(t, 2, backing.loads)

	_, err = svc.RunQuery(ctx, "SELECT COUNT(*) FROM sessions")
	require.NoError(t, err)
	_, err = svc.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, backing.loads)
}

func TestSessionService_WritesHiddenBehindReadsFlushCache(t *testing.T) {
	queries := map[string]string{
		"cte delete":      "WITH x AS (SELECT 1) DELETE FROM validation_errors",
		"returning":       "DELETE FROM validation_errors RETURNING id",
		"write then read": "DELETE FROM validation_errors; SELECT COUNT(*) FROM validation_errors",
		"leading comment": "/* cleanup */ DELETE FROM validation_errors",
	}
	for name, query := range queries {
		t.Run(name, func(t *testing.T) {
			svc, backing := newSessionService(t)
			ctx := context.Background()

			id, err := svc.Save(ctx, "errors", "", processed(t, "name,isin\nAcme,US0378331004\n"))
			require.NoError(t, err)
			loaded, err := svc.Load(ctx, id)
			require.NoError(t, err)
			require.Len(t, loaded.ErrorRecords, 1)
			require.NotEmpty(t, loaded.ErrorRecords[0].Errors)
			stats, err := svc.Stats(ctx)
			require.NoError(t, err)
			require.Positive(t, stats.TotalErrors)

			_, err = svc.RunQuery(ctx, query)
			require.NoError(t, err)

			reloaded, err := svc.Load(ctx, id)
			require.NoError(t, err)
			require.Len(t, reloaded.ErrorRecords, 1)
			assert.Empty(t, reloaded.ErrorRecords[0].Errors)
			assert.Equal(t, 2, backing.loads)

			stats, err = svc.Stats(ctx)
			require.NoError(t, err)
			assert.Zero(t, stats.TotalErrors)
			assert.Equal(t, 2, backing.stats)
		})
	}
}

func TestSessionService_FailedQueryFlushesCache(t *testing.T) {
	svc, backing := newSessionService(t)
	ctx := context.Background()

	id, err := svc.Save(ctx, "partial", "", processed(t, "isin\nUS0378331005\n"))
	require.NoError(t, err)
	_, err = svc.Load(ctx, id)
	require.NoError(t, err)

	_, err = svc.RunQuery(ctx, "UPDATE identifiers SET entity_name = 'patched'; SELECT * FROM nowhere")
	assert.ErrorIs(t, err, models.ErrStore)

	reloaded, err := svc.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "patched", reloaded.ValidRecords[0].EntityName)
	assert.Equal(t, 2, backing.loads)
}

type failingStore struct {
	SessionStore
}

func (failingStore) Save(ctx context.Context, name, filename string, result *models.BatchResult) (int64, error) {
	return 5, &models.DurabilityError{Err: errors.New("disk I/O error")}
}

func (failingStore) Load(ctx context.Context, id int64) (*models.BatchResult, error) {
	return nil, &models.NotFoundError{Resource: "session", ID: id}
}

func TestSessionService_PassesErrorsThrough(t *testing.T) {
	svc := NewSessionService(failingStore{}, NewReportCache(0))
	ctx := context.Background()

	id, err := svc.Save(ctx, "warned", "", &models.BatchResult{})
	assert.EqualValues(t, 5, id)
	assert.ErrorIs(t, err, models.ErrDurability)

	_, err = svc.Load(ctx, 9)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.Load(ctx, 9)
	assert.ErrorIs(t, err, models.ErrNotFound, "failures are not cached")
}
