package repository

import (
	"errors"
	"time"

	"refsync/internal/models"

	"gorm.io/gorm"
)

// ConflictRepository handles database operations for ConflictResolution
type ConflictRepository struct {
	db *gorm.DB
}

// NewConflictRepository creates a new ConflictRepository
func NewConflictRepository(db *gorm.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

// Create appends one conflict record
func (r *ConflictRepository) Create(conflict *models.ConflictResolution) error {
	return r.db.Create(conflict).Error
}

// GetByID retrieves a conflict record by ID
func (r *ConflictRepository) GetByID(id uint) (*models.ConflictResolution, error) {
	var conflict models.ConflictResolution
	err := r.db.First(&conflict, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("conflict not found")
		}
		return nil, err
	}
	return &conflict, nil
}

// GetBySessionID retrieves all conflicts recorded within a session
func (r *ConflictRepository) GetBySessionID(sessionID uint) ([]models.ConflictResolution, error) {
	var conflicts []models.ConflictResolution
	err := r.db.Where("session_id = ?", sessionID).Order("id ASC").Find(&conflicts).Error
	return conflicts, err
}

// CountPendingByMapping returns how many unresolved conflicts a mapping has
func (r *ConflictRepository) CountPendingByMapping(mappingID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ConflictResolution{}).
		Where("mapping_id = ? AND resolution IS NULL", mappingID).
		Count(&count).Error
	return count, err
}

// MarkResolved stamps a conflict with its decision
func (r *ConflictRepository) MarkResolved(conflictID uint, resolution, resolvedValue, resolvedBy string) error {
	now := time.Now()
	return r.db.Model(&models.ConflictResolution{}).
		Where("id = ?", conflictID).
		Updates(map[string]interface{}{
			"resolution":     resolution,
			"resolved_value": resolvedValue,
			"resolved_by":    resolvedBy,
			"resolved_at":    now,
		}).Error
}
