package repository

import (
	"errors"

	"refsync/internal/models"

	"gorm.io/gorm"
)

// SyncProfileRepository handles database operations for SyncProfile
type SyncProfileRepository struct {
	db *gorm.DB
}

// NewSyncProfileRepository creates a new SyncProfileRepository
func NewSyncProfileRepository(db *gorm.DB) *SyncProfileRepository {
	return &SyncProfileRepository{db: db}
}

// Create creates a new sync profile
func (r *SyncProfileRepository) Create(profile *models.SyncProfile) error {
	return r.db.Create(profile).Error
}

// GetByID retrieves a sync profile with its linked accounts
func (r *SyncProfileRepository) GetByID(id uint) (*models.SyncProfile, error) {
	var profile models.SyncProfile
	err := r.db.Preload("Accounts").First(&profile, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("sync profile not found")
		}
		return nil, err
	}
	return &profile, nil
}

// GetByUserID retrieves all profiles belonging to a user
func (r *SyncProfileRepository) GetByUserID(userID uint) ([]models.SyncProfile, error) {
	var profiles []models.SyncProfile
	err := r.db.Preload("Accounts").Where("user_id = ?", userID).Find(&profiles).Error
	return profiles, err
}

// Update updates an existing sync profile
func (r *SyncProfileRepository) Update(profile *models.SyncProfile) error {
	return r.db.Save(profile).Error
}

// Delete soft-deletes a sync profile
func (r *SyncProfileRepository) Delete(id uint) error {
	return r.db.Delete(&models.SyncProfile{}, id).Error
}

// LinkAccount attaches an account to a profile
func (r *SyncProfileRepository) LinkAccount(profileID, accountID uint) error {
	profile := models.SyncProfile{ID: profileID}
	account := models.ReferenceManagerAccount{ID: accountID}
	return r.db.Model(&profile).Association("Accounts").Append(&account)
}

// GetAutoSyncProfiles retrieves all profiles with auto-sync enabled,
// accounts preloaded, skipping soft-deleted rows.
func (r *SyncProfileRepository) GetAutoSyncProfiles() ([]models.SyncProfile, error) {
	var profiles []models.SyncProfile
	err := r.db.Preload("Accounts").
		Where("enable_auto_sync = ?", true).
		Where("deleted_at IS NULL").
		Find(&profiles).Error
	return profiles, err
}
