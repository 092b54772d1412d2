package models

import (
	"time"
)

// SyncDirection controls which phases of a sync run execute.
type SyncDirection string

const (
	DirectionBidirectional SyncDirection = "bidirectional"
	DirectionImportOnly    SyncDirection = "import_only"
	DirectionExportOnly    SyncDirection = "export_only"
)

// IsValidSyncDirection checks if the sync direction is valid
func IsValidSyncDirection(direction SyncDirection) bool {
	switch direction {
	case DirectionBidirectional, DirectionImportOnly, DirectionExportOnly:
		return true
	default:
		return false
	}
}

// ConflictPolicy selects how field-level disagreements are reconciled.
type ConflictPolicy string

const (
	PolicyRemoteWins ConflictPolicy = "remote_wins"
	PolicyLocalWins  ConflictPolicy = "local_wins"
	PolicyMerge      ConflictPolicy = "merge"
	PolicySkip       ConflictPolicy = "skip"
	PolicyAsk        ConflictPolicy = "ask"
)

// IsValidConflictPolicy checks if the conflict policy is valid
func IsValidConflictPolicy(policy ConflictPolicy) bool {
	switch policy {
	case PolicyRemoteWins, PolicyLocalWins, PolicyMerge, PolicySkip, PolicyAsk:
		return true
	default:
		return false
	}
}

// SyncProfile represents a user's synchronization configuration.
type SyncProfile struct {
	ID                  uint                      `gorm:"primaryKey" json:"id"`
	UserID              uint                      `gorm:"not null;index" json:"user_id"`
	User                User                      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Name                string                    `gorm:"not null;type:varchar(255)" json:"name"`
	SyncDirection       SyncDirection             `gorm:"type:varchar(20);not null;default:'bidirectional'" json:"sync_direction"`
	ConflictPolicy      ConflictPolicy            `gorm:"type:varchar(20);not null;default:'merge'" json:"conflict_policy"`
	SyncCollections     StringSlice               `gorm:"type:json" json:"sync_collections"` // id-or-name filter; empty = all
	SyncTags            StringSlice               `gorm:"type:json" json:"sync_tags"`
	ExcludeTags         StringSlice               `gorm:"type:json" json:"exclude_tags"`
	SyncAfterDate       *time.Time                `json:"sync_after_date,omitempty"`
	SyncBeforeDate      *time.Time                `json:"sync_before_date,omitempty"`
	EnableAutoSync      bool                      `gorm:"default:false" json:"enable_auto_sync"`
	SyncIntervalMinutes int                       `gorm:"default:60" json:"sync_interval_minutes"`
	Accounts            []ReferenceManagerAccount `gorm:"many2many:sync_profile_accounts;" json:"accounts,omitempty"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
	DeletedAt           DeletedAt                 `gorm:"index" json:"deleted_at,omitempty"`
}

// ActiveAccounts returns the linked accounts that are usable for a run.
func (p *SyncProfile) ActiveAccounts() []ReferenceManagerAccount {
	var active []ReferenceManagerAccount
	for _, acct := range p.Accounts {
		if acct.IsActive {
			active = append(active, acct)
		}
	}
	return active
}

// PullEnabled reports whether the pull phase runs for this profile.
func (p *SyncProfile) PullEnabled() bool {
	return p.SyncDirection == DirectionBidirectional || p.SyncDirection == DirectionImportOnly
}

// PushEnabled reports whether the push phase runs for this profile.
func (p *SyncProfile) PushEnabled() bool {
	return p.SyncDirection == DirectionBidirectional || p.SyncDirection == DirectionExportOnly
}
