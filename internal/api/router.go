package api

import (
	"net/http"

	"refsync/internal/utils"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates a new router with all the necessary routes.
func NewRouter(handler *APIHandler, progressHandler *SessionProgressHandler) http.Handler {
	router := mux.NewRouter()

	// Create API subrouter with /api prefix
	apiRouter := router.PathPrefix("/api").Subrouter()

	// Health check
	apiRouter.HandleFunc("/health", HealthCheck).Methods("GET")

	// Account management
	apiRouter.HandleFunc("/accounts", handler.CreateAccountHandler).Methods("POST")
	apiRouter.HandleFunc("/accounts", handler.GetAccountsHandler).Methods("GET")
	apiRouter.HandleFunc("/accounts/{id}", handler.GetAccountHandler).Methods("GET")
	apiRouter.HandleFunc("/accounts/{id}", handler.UpdateAccountHandler).Methods("PUT")

	// Supported providers
	apiRouter.HandleFunc("/providers", handler.GetProvidersHandler).Methods("GET")

	// Sync profiles
	apiRouter.HandleFunc("/profiles", handler.CreateProfileHandler).Methods("POST")
	apiRouter.HandleFunc("/profiles", handler.GetProfilesHandler).Methods("GET")
	apiRouter.HandleFunc("/profiles/{id}", handler.GetProfileHandler).Methods("GET")
	apiRouter.HandleFunc("/profiles/{id}", handler.UpdateProfileHandler).Methods("PUT")
	apiRouter.HandleFunc("/profiles/{id}", handler.DeleteProfileHandler).Methods("DELETE")
	apiRouter.HandleFunc("/profiles/{id}/accounts/{accountId}", handler.LinkAccountHandler).Methods("POST")

	// Sync runs
	apiRouter.HandleFunc("/profiles/{id}/sync", handler.TriggerSyncHandler).Methods("POST")
	apiRouter.HandleFunc("/profiles/{id}/sessions", handler.GetProfileSessionsHandler).Methods("GET")
	apiRouter.HandleFunc("/sessions/{sessionId}", handler.GetSessionHandler).Methods("GET")
	apiRouter.HandleFunc("/sessions/{sessionId}/logs", handler.GetSessionLogsHandler).Methods("GET")
	apiRouter.HandleFunc("/sessions/{sessionId}/conflicts", handler.GetSessionConflictsHandler).Methods("GET")

	// Conflict resolution
	apiRouter.HandleFunc("/conflicts/{id}/resolve", handler.ResolveConflictHandler).Methods("POST")

	// Daily statistics
	apiRouter.HandleFunc("/statistics", handler.GetStatisticsHandler).Methods("GET")

	// WebSocket endpoint for live session progress
	apiRouter.HandleFunc("/ws/sessions/{sessionId}", progressHandler.StreamSessionHandler).Methods("GET")

	// Swagger documentation
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	logged := utils.HTTPLoggingMiddleware(utils.NewLogger("HTTP"))(router)

	// Add CORS middleware
	return enableCORS(logged)
}

// enableCORS adds CORS headers to responses
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
