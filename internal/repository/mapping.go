package repository

import (
	"errors"
	"time"

	"refsync/internal/models"

	"gorm.io/gorm"
)

// MappingRepository handles database operations for ReferenceMapping
type MappingRepository struct {
	db *gorm.DB
}

// NewMappingRepository creates a new MappingRepository
func NewMappingRepository(db *gorm.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// GetByKey retrieves the mapping for (service, external_id, account), or
// nil when no mapping exists yet.
func (r *MappingRepository) GetByKey(service models.ServiceProvider, externalID string, accountID uint) (*models.ReferenceMapping, error) {
	var mapping models.ReferenceMapping
	err := r.db.Where("service = ? AND external_id = ? AND account_id = ?", service, externalID, accountID).
		First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mapping, nil
}

// GetByID retrieves a mapping by primary key
func (r *MappingRepository) GetByID(id uint) (*models.ReferenceMapping, error) {
	var mapping models.ReferenceMapping
	err := r.db.First(&mapping, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("mapping not found")
		}
		return nil, err
	}
	return &mapping, nil
}

// GetByReferenceAndAccount retrieves the mapping linking a local reference
// to an account, or nil when the reference is unmapped there.
func (r *MappingRepository) GetByReferenceAndAccount(referenceID, accountID uint) (*models.ReferenceMapping, error) {
	var mapping models.ReferenceMapping
	err := r.db.Where("reference_id = ? AND account_id = ?", referenceID, accountID).First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mapping, nil
}

// Upsert creates the mapping for its (service, external_id, account) key or
// updates the existing row. The key is never duplicated; a concurrent
// get-or-create race resolves to the surviving row.
func (r *MappingRepository) Upsert(mapping *models.ReferenceMapping) error {
	existing, err := r.GetByKey(mapping.Service, mapping.ExternalID, mapping.AccountID)
	if err != nil {
		return err
	}
	if existing == nil {
		err = r.db.Create(mapping).Error
		if err == nil {
			return nil
		}
		// Unique index violation means another writer created the row
		// between lookup and insert; fall through to update it.
		existing, lookupErr := r.GetByKey(mapping.Service, mapping.ExternalID, mapping.AccountID)
		if lookupErr != nil || existing == nil {
			return err
		}
		mapping.ID = existing.ID
		mapping.CreatedAt = existing.CreatedAt
		return r.db.Save(mapping).Error
	}
	mapping.ID = existing.ID
	mapping.CreatedAt = existing.CreatedAt
	return r.db.Save(mapping).Error
}

// UpdateHashes refreshes the stored fingerprints and marks the mapping synced
func (r *MappingRepository) UpdateHashes(mappingID uint, localHash, remoteHash string) error {
	now := time.Now()
	return r.db.Model(&models.ReferenceMapping{}).
		Where("id = ?", mappingID).
		Updates(map[string]interface{}{
			"local_hash":     localHash,
			"remote_hash":    remoteHash,
			"sync_status":    models.MappingSynced,
			"last_synced_at": now,
		}).Error
}

// UpdateStatus sets the reconciliation status of a mapping
func (r *MappingRepository) UpdateStatus(mappingID uint, status models.MappingStatus) error {
	return r.db.Model(&models.ReferenceMapping{}).
		Where("id = ?", mappingID).
		Update("sync_status", status).Error
}

// CountByAccount returns the number of mappings held by an account
func (r *MappingRepository) CountByAccount(accountID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ReferenceMapping{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}
