package repository

import (
	"errors"
	"time"

	"refsync/internal/models"

	"gorm.io/gorm"
)

// StatisticsDelta carries one session's contribution to the daily rollup.
type StatisticsDelta struct {
	SessionsRun       int
	SessionsSucceeded int
	SessionsFailed    int
	ItemsCreated      int
	ItemsUpdated      int
	ItemsSkipped      int
	ConflictsFound    int
	ConflictsResolved int
	APICallsMade      int
	DurationMs        int64
}

// StatisticsRepository handles database operations for SyncStatistics
type StatisticsRepository struct {
	db *gorm.DB
}

// NewStatisticsRepository creates a new StatisticsRepository
func NewStatisticsRepository(db *gorm.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// GetByUserAndDate retrieves the rollup row for (user, date), or nil
func (r *StatisticsRepository) GetByUserAndDate(userID uint, date time.Time) (*models.SyncStatistics, error) {
	var stats models.SyncStatistics
	err := r.db.Where("user_id = ? AND stat_date = ?", userID, truncateToDate(date)).First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}

// UpsertDaily adds one session's outcome to the (user, date) rollup,
// creating the row on first use.
func (r *StatisticsRepository) UpsertDaily(userID uint, date time.Time, delta StatisticsDelta) error {
	day := truncateToDate(date)
	return r.db.Transaction(func(tx *gorm.DB) error {
		var stats models.SyncStatistics
		err := tx.Where("user_id = ? AND stat_date = ?", userID, day).First(&stats).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			stats = models.SyncStatistics{UserID: userID, StatDate: day}
			if err := tx.Create(&stats).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		return tx.Model(&models.SyncStatistics{}).
			Where("id = ?", stats.ID).
			Updates(map[string]interface{}{
				"sessions_run":       gorm.Expr("sessions_run + ?", delta.SessionsRun),
				"sessions_succeeded": gorm.Expr("sessions_succeeded + ?", delta.SessionsSucceeded),
				"sessions_failed":    gorm.Expr("sessions_failed + ?", delta.SessionsFailed),
				"items_created":      gorm.Expr("items_created + ?", delta.ItemsCreated),
				"items_updated":      gorm.Expr("items_updated + ?", delta.ItemsUpdated),
				"items_skipped":      gorm.Expr("items_skipped + ?", delta.ItemsSkipped),
				"conflicts_found":    gorm.Expr("conflicts_found + ?", delta.ConflictsFound),
				"conflicts_resolved": gorm.Expr("conflicts_resolved + ?", delta.ConflictsResolved),
				"api_calls_made":     gorm.Expr("api_calls_made + ?", delta.APICallsMade),
				"total_duration_ms":  gorm.Expr("total_duration_ms + ?", delta.DurationMs),
			}).Error
	})
}

// GetRangeForUser retrieves a user's rollups within [from, to], oldest first
func (r *StatisticsRepository) GetRangeForUser(userID uint, from, to time.Time) ([]models.SyncStatistics, error) {
	var stats []models.SyncStatistics
	err := r.db.Where("user_id = ? AND stat_date >= ? AND stat_date <= ?",
		userID, truncateToDate(from), truncateToDate(to)).
		Order("stat_date ASC").
		Find(&stats).Error
	return stats, err
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
