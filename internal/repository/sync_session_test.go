package repository

import (
	"fmt"
	"testing"

	"refsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedSession(t *testing.T, db *gorm.DB, userID uint, suffix string) *models.SyncSession {
	t.Helper()
	profile := &models.SyncProfile{
		UserID:         userID,
		Name:           "profile " + suffix,
		SyncDirection:  models.DirectionBidirectional,
		ConflictPolicy: models.PolicyMerge,
	}
	require.NoError(t, db.Create(profile).Error)

	session := &models.SyncSession{
		SessionID: "session-" + suffix,
		ProfileID: profile.ID,
		UserID:    userID,
		Status:    models.SessionPending,
	}
	require.NoError(t, NewSyncSessionRepository(db).Create(session))
	return session
}

func TestSessionLifecycleTransitions(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	repo := NewSyncSessionRepository(db)
	session := seedSession(t, db, user.ID, "lifecycle")

	require.NoError(t, repo.MarkRunning(session.ID))
	stored, err := repo.GetByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionRunning, stored.Status)
	assert.NotNil(t, stored.StartedAt)

	require.NoError(t, repo.MarkCompleted(session.ID))
	stored, err = repo.GetByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	// Terminal states stay put; a second running transition is a no-op.
	require.NoError(t, repo.MarkRunning(session.ID))
	stored, err = repo.GetByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, stored.Status)
}

func TestSessionMarkFailedKeepsCounters(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	repo := NewSyncSessionRepository(db)
	session := seedSession(t, db, user.ID, "failed")

	require.NoError(t, repo.MarkRunning(session.ID))
	require.NoError(t, repo.Increment(session.ID, CounterItemsCreated, 2))
	require.NoError(t, repo.MarkFailed(session.ID, "adapter blew up"))

	stored, err := repo.GetByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, stored.Status)
	assert.Equal(t, "adapter blew up", stored.LastError)
	assert.Equal(t, 2, stored.ItemsCreated)
}

func TestSessionIncrementAccumulates(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	repo := NewSyncSessionRepository(db)
	session := seedSession(t, db, user.ID, "counters")

	require.NoError(t, repo.Increment(session.ID, CounterItemsProcessed, 3))
	require.NoError(t, repo.Increment(session.ID, CounterItemsProcessed, 4))
	require.NoError(t, repo.Increment(session.ID, CounterConflictsFound, 1))
	require.NoError(t, repo.Increment(session.ID, CounterAPICallsMade, 0))

	stored, err := repo.GetByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.ItemsProcessed)
	assert.Equal(t, 1, stored.ConflictsFound)
	assert.Zero(t, stored.APICallsMade)
}

func TestSessionGetByProfileIDOrdering(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	repo := NewSyncSessionRepository(db)

	profile := &models.SyncProfile{
		UserID:         user.ID,
		Name:           "history",
		SyncDirection:  models.DirectionBidirectional,
		ConflictPolicy: models.PolicyMerge,
	}
	require.NoError(t, db.Create(profile).Error)

	for i := 0; i < 3; i++ {
		session := &models.SyncSession{
			SessionID: fmt.Sprintf("hist-%d", i),
			ProfileID: profile.ID,
			UserID:    user.ID,
			Status:    models.SessionCompleted,
		}
		require.NoError(t, repo.Create(session))
	}

	sessions, err := repo.GetByProfileID(profile.ID, 2)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
