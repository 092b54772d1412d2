package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"refsync/internal/repository"
	"refsync/internal/services"
	"refsync/internal/utils"

	"github.com/gorilla/mux"
)

// HealthCheck godoc
// @Summary Show the status of server.
// @Description get the status of server.
// @Tags root
// @Accept */*
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/health [get]
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type APIHandler struct {
	AccountRepo  *repository.AccountRepository
	ProfileRepo  *repository.SyncProfileRepository
	SessionRepo  *repository.SyncSessionRepository
	LogRepo      *repository.SyncLogRepository
	ConflictRepo *repository.ConflictRepository
	Engine       *services.SyncEngine
	Resolution   *services.ResolutionService
	Stats        *services.StatisticsAggregator
	logger       *utils.Logger
}

func NewAPIHandler(
	accountRepo *repository.AccountRepository,
	profileRepo *repository.SyncProfileRepository,
	sessionRepo *repository.SyncSessionRepository,
	logRepo *repository.SyncLogRepository,
	conflictRepo *repository.ConflictRepository,
	engine *services.SyncEngine,
	resolution *services.ResolutionService,
	stats *services.StatisticsAggregator,
) *APIHandler {
	return &APIHandler{
		AccountRepo:  accountRepo,
		ProfileRepo:  profileRepo,
		SessionRepo:  sessionRepo,
		LogRepo:      logRepo,
		ConflictRepo: conflictRepo,
		Engine:       engine,
		Resolution:   resolution,
		Stats:        stats,
		logger:       utils.NewLogger("API"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// pathID extracts a numeric path parameter.
func pathID(r *http.Request, name string) (uint, error) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars[name], 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// queryUint extracts a numeric query parameter, 0 when absent.
func queryUint(r *http.Request, name string) (uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
