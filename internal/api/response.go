package api

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // headers already sent
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: code, Message: message})
}

// respondGeoJSON encodes body without touching the Content-Type, which the
// caller sets to the GeoJSON media type beforehand.
func respondGeoJSON(w http.ResponseWriter, body interface{}) {
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // headers already sent
}
