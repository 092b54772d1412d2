package repository

import (
	"errors"
	"time"

	"refsync/internal/models"

	"gorm.io/gorm"
)

// AccountRepository handles database operations for ReferenceManagerAccount
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account
func (r *AccountRepository) Create(account *models.ReferenceManagerAccount) error {
	return r.db.Create(account).Error
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(id uint) (*models.ReferenceManagerAccount, error) {
	var account models.ReferenceManagerAccount
	err := r.db.First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("account not found")
		}
		return nil, err
	}
	return &account, nil
}

// GetByUserID retrieves all accounts belonging to a user
func (r *AccountRepository) GetByUserID(userID uint) ([]models.ReferenceManagerAccount, error) {
	var accounts []models.ReferenceManagerAccount
	err := r.db.Where("user_id = ?", userID).Find(&accounts).Error
	return accounts, err
}

// Update updates an existing account
func (r *AccountRepository) Update(account *models.ReferenceManagerAccount) error {
	return r.db.Save(account).Error
}

// UpdateTokens stores refreshed credentials for an account
func (r *AccountRepository) UpdateTokens(accountID uint, accessToken, refreshToken string, expiresAt *time.Time) error {
	return r.db.Model(&models.ReferenceManagerAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"access_token":     accessToken,
			"refresh_token":    refreshToken,
			"token_expires_at": expiresAt,
		}).Error
}

// MarkInactive flags an account unusable until re-authenticated
func (r *AccountRepository) MarkInactive(accountID uint) error {
	return r.db.Model(&models.ReferenceManagerAccount{}).
		Where("id = ?", accountID).
		Update("is_active", false).Error
}

// UpdateLastSyncAt stamps the account with the time of its last sync run
func (r *AccountRepository) UpdateLastSyncAt(accountID uint, t time.Time) error {
	return r.db.Model(&models.ReferenceManagerAccount{}).
		Where("id = ?", accountID).
		Update("last_sync_at", t).Error
}

// RegisterAPICall atomically checks the daily budget and increments the
// per-account call counter. Returns false without incrementing when the
// budget is exhausted. The counter resets when the stored date rolls over.
func (r *AccountRepository) RegisterAPICall(accountID uint) (bool, error) {
	allowed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var account models.ReferenceManagerAccount
		if err := tx.First(&account, accountID).Error; err != nil {
			return err
		}

		now := time.Now()
		ny, nm, nd := now.Date()
		stale := account.APICallsDate == nil
		if !stale {
			cy, cm, cd := account.APICallsDate.Date()
			stale = cy != ny || cm != nm || cd != nd
		}
		if stale {
			account.APICallsToday = 0
			account.APICallsDate = &now
		}

		if account.DailyAPILimit > 0 && account.APICallsToday >= account.DailyAPILimit {
			return nil // budget exhausted, leave counter untouched
		}

		account.APICallsToday++
		allowed = true
		return tx.Model(&models.ReferenceManagerAccount{}).
			Where("id = ?", account.ID).
			Updates(map[string]interface{}{
				"api_calls_today": account.APICallsToday,
				"api_calls_date":  account.APICallsDate,
			}).Error
	})
	return allowed, err
}
