package handlers

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/pulseboard/covid-dashboard/internal/models"
	"github.com/pulseboard/covid-dashboard/internal/view"
)

// Directory is the shared country directory as seen by handlers
type Directory interface {
	Countries() []models.Country
	Loaded() bool
	Err() error
}

// APIHandler serves the dashboard as JSON
type APIHandler struct {
	directory Directory
	logger    *zap.SugaredLogger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(dir Directory, logger *zap.SugaredLogger) *APIHandler {
	return &APIHandler{directory: dir, logger: logger}
}

// Countries handles GET /api/v1/countries
// The list is empty until the directory has loaded, and stays empty if
// loading failed.
func (h *APIHandler) Countries(w http.ResponseWriter, r *http.Request) {
	countries := h.directory.Countries()
	if countries == nil {
		countries = []models.Country{}
	}
	respondJSON(w, http.StatusOK, countries)
}

// Dashboard handles GET /api/v1/dashboard
func (h *APIHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := controller(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ctrl.View())
}

// SelectCountry handles PUT /api/v1/dashboard/country
func (h *APIHandler) SelectCountry(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := controller(w, r)
	if !ok {
		return
	}

	var req models.SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := ctrl.Select(r.Context(), req.Code); err != nil {
		if errors.Is(err, view.ErrUnknownCountry) {
			respondError(w, http.StatusBadRequest, "Unknown country")
			return
		}
		h.logger.Errorw("Failed to select country", "code", req.Code, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to select country")
		return
	}

	respondJSON(w, http.StatusOK, ctrl.View())
}
