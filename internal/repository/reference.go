package repository

import (
	"errors"
	"time"

	"refsync/internal/models"

	"gorm.io/gorm"
)

// SyncItemsFilter narrows the set of local references eligible for a push
// phase. Zero values mean "no constraint"; Limit of 0 falls back to 1000.
type SyncItemsFilter struct {
	UserID      uint
	After       *time.Time
	Before      *time.Time
	IncludeTags []string
	ExcludeTags []string
	Limit       int
}

// ReferenceRepository handles database operations for Reference and Author
type ReferenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository creates a new ReferenceRepository
func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Create creates a new reference
func (r *ReferenceRepository) Create(ref *models.Reference) error {
	return r.db.Create(ref).Error
}

// GetByID retrieves a reference with its authors in stored order
func (r *ReferenceRepository) GetByID(id uint) (*models.Reference, error) {
	var ref models.Reference
	err := r.db.First(&ref, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("reference not found")
		}
		return nil, err
	}
	if err := r.loadAuthors(&ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetByDOI retrieves a user's reference by DOI, or nil when absent
func (r *ReferenceRepository) GetByDOI(userID uint, doi string) (*models.Reference, error) {
	if doi == "" {
		return nil, nil
	}
	var ref models.Reference
	err := r.db.Where("saved_by_id = ? AND doi = ?", userID, doi).First(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadAuthors(&ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Update persists field changes on an existing reference
func (r *ReferenceRepository) Update(ref *models.Reference) error {
	return r.db.Save(ref).Error
}

// loadAuthors fills ref.Authors ordered by join-row position.
func (r *ReferenceRepository) loadAuthors(ref *models.Reference) error {
	var authors []models.Author
	err := r.db.
		Joins("JOIN reference_authors ON reference_authors.author_id = authors.id").
		Where("reference_authors.reference_id = ?", ref.ID).
		Order("reference_authors.position ASC").
		Find(&authors).Error
	if err != nil {
		return err
	}
	ref.Authors = authors
	return nil
}

// LinkAuthors replaces a reference's author list with the given names in
// order. Author rows are shared across references and created on demand.
func (r *ReferenceRepository) LinkAuthors(referenceID uint, names []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reference_id = ?", referenceID).Delete(&models.ReferenceAuthor{}).Error; err != nil {
			return err
		}
		for i, name := range names {
			if name == "" {
				continue
			}
			var author models.Author
			if err := tx.Where(models.Author{FullName: name}).FirstOrCreate(&author).Error; err != nil {
				return err
			}
			link := models.ReferenceAuthor{
				ReferenceID: referenceID,
				AuthorID:    author.ID,
				Position:    i,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindForSync returns local references eligible for a push phase. Date
// bounds are applied in SQL; tag include/exclude filters are applied on the
// loaded rows so the behavior does not depend on driver JSON support.
func (r *ReferenceRepository) FindForSync(filter SyncItemsFilter) ([]models.Reference, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}

	query := r.db.Where("saved_by_id = ?", filter.UserID)
	if filter.After != nil {
		query = query.Where("updated_at >= ?", *filter.After)
	}
	if filter.Before != nil {
		query = query.Where("updated_at <= ?", *filter.Before)
	}

	var refs []models.Reference
	if err := query.Order("updated_at DESC").Limit(limit).Find(&refs).Error; err != nil {
		return nil, err
	}

	filtered := refs[:0]
	for i := range refs {
		if !matchesTags(refs[i].Tags, filter.IncludeTags, filter.ExcludeTags) {
			continue
		}
		if err := r.loadAuthors(&refs[i]); err != nil {
			return nil, err
		}
		filtered = append(filtered, refs[i])
	}
	return filtered, nil
}

// matchesTags applies include/exclude tag filters. An empty include list
// matches everything; any excluded tag disqualifies the record.
func matchesTags(tags models.StringSlice, include, exclude []string) bool {
	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagSet[t] = true
	}
	for _, t := range exclude {
		if tagSet[t] {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, t := range include {
		if tagSet[t] {
			return true
		}
	}
	return false
}
