package services

import (
	"fmt"
	"time"

	"refsync/internal/models"
	"refsync/internal/repository"
)

// StatisticsAggregator folds terminal session outcomes into per-user daily
// rollups.
type StatisticsAggregator struct {
	statsRepo *repository.StatisticsRepository
}

// NewStatisticsAggregator creates a new StatisticsAggregator
func NewStatisticsAggregator(statsRepo *repository.StatisticsRepository) *StatisticsAggregator {
	return &StatisticsAggregator{statsRepo: statsRepo}
}

// Record adds one terminal session to its user's rollup for the day the
// session completed.
func (a *StatisticsAggregator) Record(session *models.SyncSession) error {
	if !session.IsTerminal() {
		return fmt.Errorf("session %s is not terminal", session.SessionID)
	}

	delta := repository.StatisticsDelta{
		SessionsRun:       1,
		ItemsCreated:      session.ItemsCreated,
		ItemsUpdated:      session.ItemsUpdated,
		ItemsSkipped:      session.ItemsSkipped,
		ConflictsFound:    session.ConflictsFound,
		ConflictsResolved: session.ConflictsResolved,
		APICallsMade:      session.APICallsMade,
	}
	if session.Status == models.SessionCompleted {
		delta.SessionsSucceeded = 1
	} else {
		delta.SessionsFailed = 1
	}
	if session.StartedAt != nil && session.CompletedAt != nil {
		delta.DurationMs = session.CompletedAt.Sub(*session.StartedAt).Milliseconds()
	}

	day := time.Now()
	if session.CompletedAt != nil {
		day = *session.CompletedAt
	}
	return a.statsRepo.UpsertDaily(session.UserID, day, delta)
}

// RangeForUser returns a user's daily rollups for [from, to].
func (a *StatisticsAggregator) RangeForUser(userID uint, from, to time.Time) ([]models.SyncStatistics, error) {
	return a.statsRepo.GetRangeForUser(userID, from, to)
}
