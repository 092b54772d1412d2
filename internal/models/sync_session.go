package models

import (
	"time"
)

// SessionStatus is the lifecycle state of a sync session.
// Transitions: pending -> running -> {completed | failed}. Terminal states
// are never left.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// SyncSession is one execution instance of a profile's sync.
type SyncSession struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	SessionID         string        `gorm:"uniqueIndex;not null;type:varchar(36)" json:"session_id"`
	ProfileID         uint          `gorm:"not null;index" json:"profile_id"`
	Profile           SyncProfile   `gorm:"foreignKey:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID            uint          `gorm:"not null;index" json:"user_id"`
	Trigger           string        `gorm:"type:varchar(50);default:'manual'" json:"trigger"` // manual, scheduled, webhook, startup
	Status            SessionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TotalItems        int           `gorm:"default:0" json:"total_items"`
	ItemsProcessed    int           `gorm:"default:0" json:"items_processed"`
	ItemsCreated      int           `gorm:"default:0" json:"items_created"`
	ItemsUpdated      int           `gorm:"default:0" json:"items_updated"`
	ItemsSkipped      int           `gorm:"default:0" json:"items_skipped"`
	ConflictsFound    int           `gorm:"default:0" json:"conflicts_found"`
	ConflictsResolved int           `gorm:"default:0" json:"conflicts_resolved"`
	APICallsMade      int           `gorm:"default:0" json:"api_calls_made"`
	StartedAt         *time.Time    `json:"started_at,omitempty"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	LastError         string        `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// IsTerminal reports whether the session reached a final state.
func (s *SyncSession) IsTerminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionFailed
}

// ProgressPercentage derives completion for a concurrent observer polling
// mid-run. Counters are updated with each item, so this is always current.
func (s *SyncSession) ProgressPercentage() float64 {
	if s.TotalItems == 0 {
		return 0
	}
	pct := float64(s.ItemsProcessed) / float64(s.TotalItems) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// MappingStatus is the reconciliation state of a mapping.
type MappingStatus string

const (
	MappingSynced   MappingStatus = "synced"
	MappingConflict MappingStatus = "conflict"
)

// ReferenceMapping is the durable link between one local record and one
// external record, unique per (service, external_id, account).
type ReferenceMapping struct {
	ID           uint                    `gorm:"primaryKey" json:"id"`
	ReferenceID  uint                    `gorm:"not null;index" json:"reference_id"`
	Reference    Reference               `gorm:"foreignKey:ReferenceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AccountID    uint                    `gorm:"not null;uniqueIndex:idx_service_external_account" json:"account_id"`
	Account      ReferenceManagerAccount `gorm:"foreignKey:AccountID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Service      ServiceProvider         `gorm:"type:varchar(50);not null;uniqueIndex:idx_service_external_account" json:"service"`
	ExternalID   string                  `gorm:"type:varchar(255);not null;uniqueIndex:idx_service_external_account" json:"external_id"`
	LocalHash    string                  `gorm:"type:varchar(64)" json:"local_hash"`
	RemoteHash   string                  `gorm:"type:varchar(64)" json:"remote_hash"`
	SyncStatus   MappingStatus           `gorm:"type:varchar(20);not null;default:'synced';index" json:"sync_status"`
	LastSyncedAt *time.Time              `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// ConflictResolution records one detected field disagreement for one mapping
// within one session. Resolution stays NULL while the decision is deferred
// to an external actor.
type ConflictResolution struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	SessionID     uint             `gorm:"not null;index" json:"session_id"`
	Session       SyncSession      `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	MappingID     uint             `gorm:"not null;index" json:"mapping_id"`
	Mapping       ReferenceMapping `gorm:"foreignKey:MappingID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ConflictType  string           `gorm:"type:varchar(50);not null" json:"conflict_type"` // conflicting field name
	LocalValue    string           `gorm:"type:text" json:"local_value"`
	RemoteValue   string           `gorm:"type:text" json:"remote_value"`
	Resolution    *string          `gorm:"type:varchar(20)" json:"resolution,omitempty"`
	ResolvedValue string           `gorm:"type:text" json:"resolved_value,omitempty"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty"`
	ResolvedBy    string           `gorm:"type:varchar(255)" json:"resolved_by,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// IsPending reports whether the conflict still awaits a decision.
func (c *ConflictResolution) IsPending() bool {
	return c.Resolution == nil
}

// SyncOperation labels the engine step a log entry belongs to.
type SyncOperation string

const (
	OpFetch    SyncOperation = "fetch"
	OpCreate   SyncOperation = "create"
	OpUpdate   SyncOperation = "update"
	OpConflict SyncOperation = "conflict"
	OpError    SyncOperation = "error"
	OpCleanup  SyncOperation = "cleanup"
)

// SyncLog is one append-only event in a session's trail.
type SyncLog struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	SessionID uint          `gorm:"not null;index" json:"session_id"`
	Session   SyncSession   `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Level     string        `gorm:"type:varchar(10);not null" json:"level"` // DEBUG, INFO, WARN, ERROR
	Operation SyncOperation `gorm:"type:varchar(20);not null;index" json:"operation"`
	Message   string        `gorm:"type:text;not null" json:"message"`
	MappingID *uint         `gorm:"index" json:"mapping_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// SyncStatistics accumulates session outcomes per user per day.
type SyncStatistics struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;uniqueIndex:idx_user_stat_date" json:"user_id"`
	StatDate          time.Time `gorm:"type:date;not null;uniqueIndex:idx_user_stat_date" json:"stat_date"`
	SessionsRun       int       `gorm:"default:0" json:"sessions_run"`
	SessionsSucceeded int       `gorm:"default:0" json:"sessions_succeeded"`
	SessionsFailed    int       `gorm:"default:0" json:"sessions_failed"`
	ItemsCreated      int       `gorm:"default:0" json:"items_created"`
	ItemsUpdated      int       `gorm:"default:0" json:"items_updated"`
	ItemsSkipped      int       `gorm:"default:0" json:"items_skipped"`
	ConflictsFound    int       `gorm:"default:0" json:"conflicts_found"`
	ConflictsResolved int       `gorm:"default:0" json:"conflicts_resolved"`
	APICallsMade      int       `gorm:"default:0" json:"api_calls_made"`
	TotalDurationMs   int64     `gorm:"default:0" json:"total_duration_ms"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SyncStatistics) TableName() string {
	return "sync_statistics"
}
