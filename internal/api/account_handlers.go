package api

import (
	"encoding/json"
	"net/http"

	"refsync/internal/models"
	"refsync/internal/services"
)

// CreateAccountHandler godoc
// @Summary Connect a reference-manager account
// @Description Stores credentials for one external reference-manager service so sync profiles can use it.
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body CreateAccountRequest true "Account to connect"
// @Success 201 {object} models.ReferenceManagerAccount
// @Failure 400 {string} string "Bad Request"
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/accounts [post]
func (h *APIHandler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var request CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if request.UserID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	provider := models.ServiceProvider(request.Provider)
	if !providerRegistered(provider) {
		http.Error(w, "unknown provider: "+request.Provider, http.StatusBadRequest)
		return
	}

	account := &models.ReferenceManagerAccount{
		UserID:         request.UserID,
		Provider:       provider,
		ExternalUserID: request.ExternalUserID,
		AccessToken:    request.AccessToken,
		RefreshToken:   request.RefreshToken,
		TokenExpiresAt: request.TokenExpiresAt,
		APIKey:         request.APIKey,
		LibraryID:      request.LibraryID,
		Proxy:          request.Proxy,
		DailyAPILimit:  request.DailyAPILimit,
		IsActive:       true,
	}
	if account.DailyAPILimit == 0 {
		account.DailyAPILimit = 1000
	}

	if err := h.AccountRepo.Create(account); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// GetAccountsHandler godoc
// @Summary List a user's connected accounts
// @Tags accounts
// @Produce json
// @Param user_id query int true "User ID"
// @Success 200 {array} models.ReferenceManagerAccount
// @Failure 400 {string} string "Bad Request"
// @Router /api/accounts [get]
func (h *APIHandler) GetAccountsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUint(r, "user_id")
	if err != nil || userID == 0 {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}
	accounts, err := h.AccountRepo.GetByUserID(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccountHandler godoc
// @Summary Get one connected account
// @Tags accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} models.ReferenceManagerAccount
// @Failure 404 {string} string "Not Found"
// @Router /api/accounts/{id} [get]
func (h *APIHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}
	account, err := h.AccountRepo.GetByID(id)
	if err != nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// UpdateAccountHandler godoc
// @Summary Update a connected account
// @Description Changes credentials, proxy, or limits. Omitted fields stay as they are.
// @Tags accounts
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param request body UpdateAccountRequest true "Fields to change"
// @Success 200 {object} models.ReferenceManagerAccount
// @Failure 400 {string} string "Bad Request"
// @Failure 404 {string} string "Not Found"
// @Router /api/accounts/{id} [put]
func (h *APIHandler) UpdateAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}
	account, err := h.AccountRepo.GetByID(id)
	if err != nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	var request UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if request.AccessToken != nil {
		account.AccessToken = *request.AccessToken
	}
	if request.RefreshToken != nil {
		account.RefreshToken = *request.RefreshToken
	}
	if request.TokenExpiresAt != nil {
		account.TokenExpiresAt = request.TokenExpiresAt
	}
	if request.APIKey != nil {
		account.APIKey = *request.APIKey
	}
	if request.LibraryID != nil {
		account.LibraryID = *request.LibraryID
	}
	if request.Proxy != nil {
		account.Proxy = *request.Proxy
	}
	if request.DailyAPILimit != nil {
		account.DailyAPILimit = *request.DailyAPILimit
	}
	if request.IsActive != nil {
		account.IsActive = *request.IsActive
	}

	if err := h.AccountRepo.Update(account); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// GetProvidersHandler godoc
// @Summary List supported reference-manager providers
// @Tags accounts
// @Produce json
// @Success 200 {array} string
// @Router /api/providers [get]
func (h *APIHandler) GetProvidersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, services.RegisteredProviders())
}

func providerRegistered(provider models.ServiceProvider) bool {
	for _, p := range services.RegisteredProviders() {
		if p == provider {
			return true
		}
	}
	return false
}
