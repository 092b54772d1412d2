package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// GetSessionHandler godoc
// @Summary Get a sync session's status and counters
// @Tags sync
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} models.SyncSession
// @Failure 404 {string} string "Not Found"
// @Router /api/sessions/{sessionId} [get]
func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	session, err := h.SessionRepo.GetBySessionID(sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GetSessionLogsHandler godoc
// @Summary Get a session's log trail
// @Tags sync
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param limit query int false "Max entries (default 500)"
// @Success 200 {array} models.SyncLog
// @Failure 404 {string} string "Not Found"
// @Router /api/sessions/{sessionId}/logs [get]
func (h *APIHandler) GetSessionLogsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	session, err := h.SessionRepo.GetBySessionID(sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	logs, err := h.LogRepo.GetBySessionID(session.ID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// GetSessionConflictsHandler godoc
// @Summary Get conflicts recorded within a session
// @Tags conflicts
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {array} models.ConflictResolution
// @Failure 404 {string} string "Not Found"
// @Router /api/sessions/{sessionId}/conflicts [get]
func (h *APIHandler) GetSessionConflictsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	session, err := h.SessionRepo.GetBySessionID(sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	conflicts, err := h.ConflictRepo.GetBySessionID(session.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, conflicts)
}

// GetProfileSessionsHandler godoc
// @Summary List a profile's recent sessions
// @Tags sync
// @Produce json
// @Param id path int true "Profile ID"
// @Param limit query int false "Max sessions (default 20)"
// @Success 200 {array} models.SyncSession
// @Failure 400 {string} string "Bad Request"
// @Router /api/profiles/{id}/sessions [get]
func (h *APIHandler) GetProfileSessionsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid profile id", http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	sessions, err := h.SessionRepo.GetByProfileID(id, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// ResolveConflictHandler godoc
// @Summary Resolve a pending conflict
// @Description Applies the chosen value to the local record and stamps the conflict. The mapping returns to synced once no pending conflicts remain on it.
// @Tags conflicts
// @Accept json
// @Produce json
// @Param id path int true "Conflict ID"
// @Param request body ResolveConflictRequest true "Decision"
// @Success 200 {object} models.ConflictResolution
// @Failure 400 {string} string "Bad Request"
// @Failure 404 {string} string "Not Found"
// @Router /api/conflicts/{id}/resolve [post]
func (h *APIHandler) ResolveConflictHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid conflict id", http.StatusBadRequest)
		return
	}

	var request ResolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if request.ResolvedBy == "" {
		request.ResolvedBy = "user"
	}

	resolved, err := h.Resolution.ApplyResolution(id, request.ResolvedValue, request.ResolvedBy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// GetStatisticsHandler godoc
// @Summary Get a user's daily sync statistics
// @Tags statistics
// @Produce json
// @Param user_id query int true "User ID"
// @Param from query string false "Start date (RFC3339, default 30 days ago)"
// @Param to query string false "End date (RFC3339, default now)"
// @Success 200 {array} models.SyncStatistics
// @Failure 400 {string} string "Bad Request"
// @Router /api/statistics [get]
func (h *APIHandler) GetStatisticsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUint(r, "user_id")
	if err != nil || userID == 0 {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid to date", http.StatusBadRequest)
			return
		}
		to = parsed
	}

	stats, err := h.Stats.RangeForUser(userID, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
