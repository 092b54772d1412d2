package services

import (
	"sync"
	"testing"

	"refsync/internal/models"
	"refsync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerConcurrentIncrements(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db)
	account := createTestAccount(t, db, user.ID, models.ProviderZotero)
	profile := createTestProfile(t, db, user.ID, models.DirectionImportOnly, models.PolicyMerge, account)

	sessionRepo := repository.NewSyncSessionRepository(db)
	session := &models.SyncSession{
		SessionID: "concurrent-counters",
		ProfileID: profile.ID,
		UserID:    user.ID,
		Status:    models.SessionRunning,
	}
	require.NoError(t, sessionRepo.Create(session))
	tracker := NewSessionTracker(session, sessionRepo, repository.NewSyncLogRepository(db))

	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				tracker.Increment(repository.CounterItemsProcessed, 1)
				tracker.Increment(repository.CounterConflictsFound, 1)
			}
		}()
	}
	wg.Wait()

	// The in-memory mirror must agree with the atomically incremented row.
	snapshot := tracker.Session()
	assert.Equal(t, workers*perWorker, snapshot.ItemsProcessed)
	assert.Equal(t, workers*perWorker, snapshot.ConflictsFound)

	stored, err := sessionRepo.GetByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, stored.ItemsProcessed)
	assert.Equal(t, workers*perWorker, stored.ConflictsFound)
}

func TestTrackerSessionSnapshotIsolated(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db)
	account := createTestAccount(t, db, user.ID, models.ProviderZotero)
	profile := createTestProfile(t, db, user.ID, models.DirectionImportOnly, models.PolicyMerge, account)

	sessionRepo := repository.NewSyncSessionRepository(db)
	session := &models.SyncSession{
		SessionID: "snapshot",
		ProfileID: profile.ID,
		UserID:    user.ID,
		Status:    models.SessionRunning,
	}
	require.NoError(t, sessionRepo.Create(session))
	tracker := NewSessionTracker(session, sessionRepo, repository.NewSyncLogRepository(db))

	before := tracker.Session()
	tracker.Increment(repository.CounterItemsCreated, 2)

	assert.Zero(t, before.ItemsCreated)
	assert.Equal(t, 2, tracker.Session().ItemsCreated)
}
