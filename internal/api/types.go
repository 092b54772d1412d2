package api

import "time"

// CreateAccountRequest is the payload for connecting a reference-manager
// account.
type CreateAccountRequest struct {
	UserID         uint       `json:"user_id"`
	Provider       string     `json:"provider"`
	ExternalUserID string     `json:"external_user_id,omitempty"`
	AccessToken    string     `json:"access_token,omitempty"`
	RefreshToken   string     `json:"refresh_token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	APIKey         string     `json:"api_key,omitempty"`
	LibraryID      string     `json:"library_id,omitempty"`
	Proxy          string     `json:"proxy,omitempty"`
	DailyAPILimit  int        `json:"daily_api_limit,omitempty"`
}

// UpdateAccountRequest is the payload for changing stored credentials or
// limits on an account. Nil fields are left unchanged.
type UpdateAccountRequest struct {
	AccessToken    *string    `json:"access_token,omitempty"`
	RefreshToken   *string    `json:"refresh_token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	APIKey         *string    `json:"api_key,omitempty"`
	LibraryID      *string    `json:"library_id,omitempty"`
	Proxy          *string    `json:"proxy,omitempty"`
	DailyAPILimit  *int       `json:"daily_api_limit,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
}

// CreateProfileRequest is the payload for creating a sync profile.
type CreateProfileRequest struct {
	UserID              uint       `json:"user_id"`
	Name                string     `json:"name"`
	SyncDirection       string     `json:"sync_direction,omitempty"`
	ConflictPolicy      string     `json:"conflict_policy,omitempty"`
	SyncCollections     []string   `json:"sync_collections,omitempty"`
	SyncTags            []string   `json:"sync_tags,omitempty"`
	ExcludeTags         []string   `json:"exclude_tags,omitempty"`
	SyncAfterDate       *time.Time `json:"sync_after_date,omitempty"`
	SyncBeforeDate      *time.Time `json:"sync_before_date,omitempty"`
	EnableAutoSync      bool       `json:"enable_auto_sync,omitempty"`
	SyncIntervalMinutes int        `json:"sync_interval_minutes,omitempty"`
	AccountIDs          []uint     `json:"account_ids,omitempty"`
}

// UpdateProfileRequest is the payload for changing a profile. Nil fields are
// left unchanged.
type UpdateProfileRequest struct {
	Name                *string    `json:"name,omitempty"`
	SyncDirection       *string    `json:"sync_direction,omitempty"`
	ConflictPolicy      *string    `json:"conflict_policy,omitempty"`
	SyncCollections     []string   `json:"sync_collections,omitempty"`
	SyncTags            []string   `json:"sync_tags,omitempty"`
	ExcludeTags         []string   `json:"exclude_tags,omitempty"`
	SyncAfterDate       *time.Time `json:"sync_after_date,omitempty"`
	SyncBeforeDate      *time.Time `json:"sync_before_date,omitempty"`
	EnableAutoSync      *bool      `json:"enable_auto_sync,omitempty"`
	SyncIntervalMinutes *int       `json:"sync_interval_minutes,omitempty"`
}

// TriggerSyncResponse acknowledges a started run.
type TriggerSyncResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// ResolveConflictRequest carries the decision for one pending conflict.
type ResolveConflictRequest struct {
	ResolvedValue string `json:"resolved_value"`
	ResolvedBy    string `json:"resolved_by,omitempty"`
}

// SessionProgressMessage is the WebSocket frame streamed to progress
// observers.
type SessionProgressMessage struct {
	SessionID         string  `json:"session_id"`
	Status            string  `json:"status"`
	TotalItems        int     `json:"total_items"`
	ItemsProcessed    int     `json:"items_processed"`
	ItemsCreated      int     `json:"items_created"`
	ItemsUpdated      int     `json:"items_updated"`
	ItemsSkipped      int     `json:"items_skipped"`
	ConflictsFound    int     `json:"conflicts_found"`
	ConflictsResolved int     `json:"conflicts_resolved"`
	Progress          float64 `json:"progress"`
	LastError         string  `json:"last_error,omitempty"`
}
