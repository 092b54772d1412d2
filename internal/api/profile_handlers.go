package api

import (
	"context"
	"encoding/json"
	"net/http"

	"refsync/internal/models"
)

// CreateProfileHandler godoc
// @Summary Create a sync profile
// @Description Creates a synchronization configuration and links the given accounts to it.
// @Tags profiles
// @Accept json
// @Produce json
// @Param request body CreateProfileRequest true "Profile to create"
// @Success 201 {object} models.SyncProfile
// @Failure 400 {string} string "Bad Request"
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/profiles [post]
func (h *APIHandler) CreateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var request CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if request.UserID == 0 || request.Name == "" {
		http.Error(w, "user_id and name are required", http.StatusBadRequest)
		return
	}

	direction := models.SyncDirection(request.SyncDirection)
	if request.SyncDirection == "" {
		direction = models.DirectionBidirectional
	} else if !models.IsValidSyncDirection(direction) {
		http.Error(w, "invalid sync_direction: "+request.SyncDirection, http.StatusBadRequest)
		return
	}

	policy := models.ConflictPolicy(request.ConflictPolicy)
	if request.ConflictPolicy == "" {
		policy = models.PolicyMerge
	} else if !models.IsValidConflictPolicy(policy) {
		http.Error(w, "invalid conflict_policy: "+request.ConflictPolicy, http.StatusBadRequest)
		return
	}

	profile := &models.SyncProfile{
		UserID:              request.UserID,
		Name:                request.Name,
		SyncDirection:       direction,
		ConflictPolicy:      policy,
		SyncCollections:     request.SyncCollections,
		SyncTags:            request.SyncTags,
		ExcludeTags:         request.ExcludeTags,
		SyncAfterDate:       request.SyncAfterDate,
		SyncBeforeDate:      request.SyncBeforeDate,
		EnableAutoSync:      request.EnableAutoSync,
		SyncIntervalMinutes: request.SyncIntervalMinutes,
	}
	if profile.SyncIntervalMinutes <= 0 {
		profile.SyncIntervalMinutes = 60
	}

	if err := h.ProfileRepo.Create(profile); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, accountID := range request.AccountIDs {
		if err := h.ProfileRepo.LinkAccount(profile.ID, accountID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	created, err := h.ProfileRepo.GetByID(profile.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetProfilesHandler godoc
// @Summary List a user's sync profiles
// @Tags profiles
// @Produce json
// @Param user_id query int true "User ID"
// @Success 200 {array} models.SyncProfile
// @Failure 400 {string} string "Bad Request"
// @Router /api/profiles [get]
func (h *APIHandler) GetProfilesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUint(r, "user_id")
	if err != nil || userID == 0 {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}
	profiles, err := h.ProfileRepo.GetByUserID(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// GetProfileHandler godoc
// @Summary Get one sync profile
// @Tags profiles
// @Produce json
// @Param id path int true "Profile ID"
// @Success 200 {object} models.SyncProfile
// @Failure 404 {string} string "Not Found"
// @Router /api/profiles/{id} [get]
func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid profile id", http.StatusBadRequest)
		return
	}
	profile, err := h.ProfileRepo.GetByID(id)
	if err != nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfileHandler godoc
// @Summary Update a sync profile
// @Description Changes profile settings. Omitted fields stay as they are.
// @Tags profiles
// @Accept json
// @Produce json
// @Param id path int true "Profile ID"
// @Param request body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} models.SyncProfile
// @Failure 400 {string} string "Bad Request"
// @Failure 404 {string} string "Not Found"
// @Router /api/profiles/{id} [put]
func (h *APIHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid profile id", http.StatusBadRequest)
		return
	}
	profile, err := h.ProfileRepo.GetByID(id)
	if err != nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}

	var request UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if request.Name != nil {
		profile.Name = *request.Name
	}
	if request.SyncDirection != nil {
		direction := models.SyncDirection(*request.SyncDirection)
		if !models.IsValidSyncDirection(direction) {
			http.Error(w, "invalid sync_direction: "+*request.SyncDirection, http.StatusBadRequest)
			return
		}
		profile.SyncDirection = direction
	}
	if request.ConflictPolicy != nil {
		policy := models.ConflictPolicy(*request.ConflictPolicy)
		if !models.IsValidConflictPolicy(policy) {
			http.Error(w, "invalid conflict_policy: "+*request.ConflictPolicy, http.StatusBadRequest)
			return
		}
		profile.ConflictPolicy = policy
	}
	if request.SyncCollections != nil {
		profile.SyncCollections = request.SyncCollections
	}
	if request.SyncTags != nil {
		profile.SyncTags = request.SyncTags
	}
	if request.ExcludeTags != nil {
		profile.ExcludeTags = request.ExcludeTags
	}
	if request.SyncAfterDate != nil {
		profile.SyncAfterDate = request.SyncAfterDate
	}
	if request.SyncBeforeDate != nil {
		profile.SyncBeforeDate = request.SyncBeforeDate
	}
	if request.EnableAutoSync != nil {
		profile.EnableAutoSync = *request.EnableAutoSync
	}
	if request.SyncIntervalMinutes != nil && *request.SyncIntervalMinutes > 0 {
		profile.SyncIntervalMinutes = *request.SyncIntervalMinutes
	}

	if err := h.ProfileRepo.Update(profile); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// DeleteProfileHandler godoc
// @Summary Delete a sync profile
// @Tags profiles
// @Param id path int true "Profile ID"
// @Success 204 {string} string "No Content"
// @Failure 400 {string} string "Bad Request"
// @Router /api/profiles/{id} [delete]
func (h *APIHandler) DeleteProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid profile id", http.StatusBadRequest)
		return
	}
	if err := h.ProfileRepo.Delete(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkAccountHandler godoc
// @Summary Link an account to a profile
// @Tags profiles
// @Produce json
// @Param id path int true "Profile ID"
// @Param accountId path int true "Account ID"
// @Success 200 {object} models.SyncProfile
// @Failure 400 {string} string "Bad Request"
// @Failure 404 {string} string "Not Found"
// @Router /api/profiles/{id}/accounts/{accountId} [post]
func (h *APIHandler) LinkAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid profile id", http.StatusBadRequest)
		return
	}
	accountID, err := pathID(r, "accountId")
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}
	if _, err := h.AccountRepo.GetByID(accountID); err != nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}
	if err := h.ProfileRepo.LinkAccount(id, accountID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	profile, err := h.ProfileRepo.GetByID(id)
	if err != nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// TriggerSyncHandler godoc
// @Summary Start a sync run for a profile
// @Description Creates a session and runs the sync in the background. Poll the session endpoint or subscribe to the WebSocket stream for progress.
// @Tags sync
// @Produce json
// @Param id path int true "Profile ID"
// @Success 202 {object} TriggerSyncResponse
// @Failure 404 {string} string "Not Found"
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/profiles/{id}/sync [post]
func (h *APIHandler) TriggerSyncHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid profile id", http.StatusBadRequest)
		return
	}
	profile, err := h.ProfileRepo.GetByID(id)
	if err != nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}

	session, err := h.Engine.StartSession(profile, "manual")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	go func() {
		if err := h.Engine.Run(context.Background(), session, profile); err != nil {
			h.logger.Warn("Manual sync for profile %d ended with error: %v", profile.ID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, TriggerSyncResponse{
		SessionID: session.SessionID,
		Status:    string(session.Status),
	})
}
