package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertDailyAccumulatesAcrossSessions(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	repo := NewStatisticsRepository(db)
	day := time.Now()

	require.NoError(t, repo.UpsertDaily(user.ID, day, StatisticsDelta{
		SessionsRun:       1,
		SessionsSucceeded: 1,
		ItemsCreated:      3,
		APICallsMade:      10,
		DurationMs:        1500,
	}))
	require.NoError(t, repo.UpsertDaily(user.ID, day, StatisticsDelta{
		SessionsRun:    1,
		SessionsFailed: 1,
		ItemsUpdated:   2,
		ConflictsFound: 1,
		APICallsMade:   4,
		DurationMs:     500,
	}))

	row, err := repo.GetByUserAndDate(user.ID, day)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 2, row.SessionsRun)
	assert.Equal(t, 1, row.SessionsSucceeded)
	assert.Equal(t, 1, row.SessionsFailed)
	assert.Equal(t, 3, row.ItemsCreated)
	assert.Equal(t, 2, row.ItemsUpdated)
	assert.Equal(t, 1, row.ConflictsFound)
	assert.Equal(t, 14, row.APICallsMade)
	assert.EqualValues(t, 2000, row.TotalDurationMs)
}

func TestUpsertDailySeparatesDays(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	repo := NewStatisticsRepository(db)

	today := time.Now()
	yesterday := today.AddDate(0, 0, -1)

	require.NoError(t, repo.UpsertDaily(user.ID, yesterday, StatisticsDelta{SessionsRun: 1}))
	require.NoError(t, repo.UpsertDaily(user.ID, today, StatisticsDelta{SessionsRun: 1}))

	row, err := repo.GetByUserAndDate(user.ID, yesterday)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 1, row.SessionsRun)

	all, err := repo.GetRangeForUser(user.ID, yesterday, today)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].StatDate.Before(all[1].StatDate))
}

func TestGetByUserAndDateMissingRow(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	repo := NewStatisticsRepository(db)

	row, err := repo.GetByUserAndDate(user.ID, time.Now())
	require.NoError(t, err)
	assert.Nil(t, row)
}
