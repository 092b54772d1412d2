package repository

import (
	"refsync/internal/models"

	"gorm.io/gorm"
)

// SyncLogRepository handles append-only writes for SyncLog
type SyncLogRepository struct {
	db *gorm.DB
}

// NewSyncLogRepository creates a new SyncLogRepository
func NewSyncLogRepository(db *gorm.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Append adds one log entry to a session's trail
func (r *SyncLogRepository) Append(entry *models.SyncLog) error {
	return r.db.Create(entry).Error
}

// GetBySessionID retrieves a session's log entries in append order
func (r *SyncLogRepository) GetBySessionID(sessionID uint, limit int) ([]models.SyncLog, error) {
	if limit <= 0 {
		limit = 500
	}
	var entries []models.SyncLog
	err := r.db.Where("session_id = ?", sessionID).
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// CountByOperation returns how many entries a session logged per operation
func (r *SyncLogRepository) CountByOperation(sessionID uint, op models.SyncOperation) (int64, error) {
	var count int64
	err := r.db.Model(&models.SyncLog{}).
		Where("session_id = ? AND operation = ?", sessionID, op).
		Count(&count).Error
	return count, err
}
