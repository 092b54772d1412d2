package api

import (
	"net/http"
	"time"

	"refsync/internal/repository"
	"refsync/internal/utils"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// SessionProgressHandler streams a running session's counters over a
// WebSocket so observers see live progress instead of polling.
type SessionProgressHandler struct {
	sessionRepo *repository.SyncSessionRepository
	upgrader    websocket.Upgrader
	logger      *utils.Logger

	pollInterval time.Duration
}

// NewSessionProgressHandler creates a new SessionProgressHandler
func NewSessionProgressHandler(sessionRepo *repository.SyncSessionRepository) *SessionProgressHandler {
	return &SessionProgressHandler{
		sessionRepo: sessionRepo,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins in development
				// TODO: Implement proper origin checking for production
				return true
			},
		},
		logger:       utils.NewLogger("SessionProgressWS"),
		pollInterval: time.Second,
	}
}

// StreamSessionHandler upgrades the connection and pushes one progress frame
// per poll until the session reaches a terminal state.
func (h *SessionProgressHandler) StreamSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		session, err := h.sessionRepo.GetBySessionID(sessionID)
		if err != nil {
			conn.WriteJSON(map[string]string{"error": "session not found"})
			return
		}

		message := SessionProgressMessage{
			SessionID:         session.SessionID,
			Status:            string(session.Status),
			TotalItems:        session.TotalItems,
			ItemsProcessed:    session.ItemsProcessed,
			ItemsCreated:      session.ItemsCreated,
			ItemsUpdated:      session.ItemsUpdated,
			ItemsSkipped:      session.ItemsSkipped,
			ConflictsFound:    session.ConflictsFound,
			ConflictsResolved: session.ConflictsResolved,
			Progress:          session.ProgressPercentage(),
			LastError:         session.LastError,
		}
		if err := conn.WriteJSON(message); err != nil {
			return
		}
		if session.IsTerminal() {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(session.Status)))
			return
		}

		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
