// Package handlers contains HTTP request handlers for the dashboard.
// Handlers resolve the session controller, call it, and return HTML,
// PNG or JSON responses.
package handlers

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/pulseboard/covid-dashboard/internal/session"
	"github.com/pulseboard/covid-dashboard/internal/view"
)

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Helper: respond with error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// controller returns the session controller or writes a 500
func controller(w http.ResponseWriter, r *http.Request) (*view.Controller, bool) {
	ctrl := session.FromContext(r.Context())
	if ctrl == nil {
		respondError(w, http.StatusInternalServerError, "Session unavailable")
		return nil, false
	}
	return ctrl, true
}
