package repository

import (
	"errors"
	"time"

	"refsync/internal/models"

	"gorm.io/gorm"
)

// SessionCounter names one of the incrementable sync session counters.
type SessionCounter string

const (
	CounterTotalItems        SessionCounter = "total_items"
	CounterItemsProcessed    SessionCounter = "items_processed"
	CounterItemsCreated      SessionCounter = "items_created"
	CounterItemsUpdated      SessionCounter = "items_updated"
	CounterItemsSkipped      SessionCounter = "items_skipped"
	CounterConflictsFound    SessionCounter = "conflicts_found"
	CounterConflictsResolved SessionCounter = "conflicts_resolved"
	CounterAPICallsMade      SessionCounter = "api_calls_made"
)

// SyncSessionRepository handles database operations for SyncSession
type SyncSessionRepository struct {
	db *gorm.DB
}

// NewSyncSessionRepository creates a new SyncSessionRepository
func NewSyncSessionRepository(db *gorm.DB) *SyncSessionRepository {
	return &SyncSessionRepository{db: db}
}

// Create creates a new sync session
func (r *SyncSessionRepository) Create(session *models.SyncSession) error {
	return r.db.Create(session).Error
}

// GetByID retrieves a session by primary key
func (r *SyncSessionRepository) GetByID(id uint) (*models.SyncSession, error) {
	var session models.SyncSession
	err := r.db.First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("sync session not found")
		}
		return nil, err
	}
	return &session, nil
}

// GetBySessionID retrieves a session by its public identifier
func (r *SyncSessionRepository) GetBySessionID(sessionID string) (*models.SyncSession, error) {
	var session models.SyncSession
	err := r.db.Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("sync session not found")
		}
		return nil, err
	}
	return &session, nil
}

// GetByProfileID retrieves a profile's sessions, most recent first
func (r *SyncSessionRepository) GetByProfileID(profileID uint, limit int) ([]models.SyncSession, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []models.SyncSession
	err := r.db.Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// MarkRunning transitions a session from pending to running
func (r *SyncSessionRepository) MarkRunning(sessionID uint) error {
	now := time.Now()
	return r.db.Model(&models.SyncSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionPending).
		Updates(map[string]interface{}{
			"status":     models.SessionRunning,
			"started_at": now,
		}).Error
}

// MarkCompleted transitions a session to its successful terminal state
func (r *SyncSessionRepository) MarkCompleted(sessionID uint) error {
	now := time.Now()
	return r.db.Model(&models.SyncSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionRunning).
		Updates(map[string]interface{}{
			"status":       models.SessionCompleted,
			"completed_at": now,
		}).Error
}

// MarkFailed transitions a session to failed, preserving partial counters
func (r *SyncSessionRepository) MarkFailed(sessionID uint, lastError string) error {
	now := time.Now()
	return r.db.Model(&models.SyncSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":       models.SessionFailed,
			"completed_at": now,
			"last_error":   lastError,
		}).Error
}

// Increment atomically adds delta to one session counter. Single UPDATE
// statement so concurrent pull workers never lose increments.
func (r *SyncSessionRepository) Increment(sessionID uint, counter SessionCounter, delta int) error {
	if delta == 0 {
		return nil
	}
	return r.db.Model(&models.SyncSession{}).
		Where("id = ?", sessionID).
		Update(string(counter), gorm.Expr(string(counter)+" + ?", delta)).Error
}
