package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAPICallEnforcesDailyLimit(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	account := seedAccount(t, db, user.ID)
	repo := NewAccountRepository(db)

	require.NoError(t, db.Model(account).Update("daily_api_limit", 3).Error)

	for i := 0; i < 3; i++ {
		allowed, err := repo.RegisterAPICall(account.ID)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should fit the budget", i+1)
	}

	allowed, err := repo.RegisterAPICall(account.ID)
	require.NoError(t, err)
	assert.False(t, allowed)

	stored, err := repo.GetByID(account.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.APICallsToday)
}

func TestRegisterAPICallResetsOnDateRollover(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	account := seedAccount(t, db, user.ID)
	repo := NewAccountRepository(db)

	yesterday := time.Now().AddDate(0, 0, -1)
	require.NoError(t, db.Model(account).Updates(map[string]interface{}{
		"daily_api_limit": 5,
		"api_calls_today": 5,
		"api_calls_date":  yesterday,
	}).Error)

	// Yesterday's exhausted counter does not block today's first call.
	allowed, err := repo.RegisterAPICall(account.ID)
	require.NoError(t, err)
	assert.True(t, allowed)

	stored, err := repo.GetByID(account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.APICallsToday)
	require.NotNil(t, stored.APICallsDate)
	y, m, d := time.Now().Date()
	cy, cm, cd := stored.APICallsDate.Date()
	assert.Equal(t, y, cy)
	assert.Equal(t, m, cm)
	assert.Equal(t, d, cd)
}

func TestRegisterAPICallUnlimitedWhenLimitZero(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	account := seedAccount(t, db, user.ID)
	repo := NewAccountRepository(db)

	require.NoError(t, db.Model(account).Updates(map[string]interface{}{
		"daily_api_limit": 0,
		"api_calls_today": 100000,
		"api_calls_date":  time.Now(),
	}).Error)

	allowed, err := repo.RegisterAPICall(account.ID)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestUpdateLastSyncAt(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	account := seedAccount(t, db, user.ID)
	repo := NewAccountRepository(db)

	stamp := time.Now().Add(-time.Minute)
	require.NoError(t, repo.UpdateLastSyncAt(account.ID, stamp))

	stored, err := repo.GetByID(account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastSyncAt)
	assert.WithinDuration(t, stamp, *stored.LastSyncAt, time.Second)
}

func TestMarkInactive(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	account := seedAccount(t, db, user.ID)
	repo := NewAccountRepository(db)

	require.NoError(t, repo.MarkInactive(account.ID))

	stored, err := repo.GetByID(account.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}
