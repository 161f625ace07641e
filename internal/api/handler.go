package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rangecast/rangecast/internal/history"
	"github.com/rangecast/rangecast/internal/output"
)

// Handler serves run results over HTTP. All endpoints are read-only; the
// scheduler is the only writer.
type Handler struct {
	runs    history.Repository
	logger  zerolog.Logger
	version string
	started time.Time
}

// NewHandler creates the API handler.
func NewHandler(runs history.Repository, version string, logger zerolog.Logger) *Handler {
	return &Handler{
		runs:    runs,
		logger:  logger,
		version: version,
		started: time.Now(),
	}
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// LatestRun returns the most recent run result, partial or not.
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runs.Latest(r.Context())
	if err != nil {
		if errors.Is(err, history.ErrNoRuns) {
			respondError(w, http.StatusNotFound, "no_runs", "no estimation run has completed yet")
			return
		}
		h.logger.Error().Err(err).Msg("latest run lookup failed")
		respondError(w, http.StatusInternalServerError, "internal", "run lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Contours returns the latest complete run as a GeoJSON FeatureCollection,
// the same artifact the renderer reads from disk.
func (h *Handler) Contours(w http.ResponseWriter, r *http.Request) {
	result, err := h.runs.LatestComplete(r.Context())
	if err != nil {
		if errors.Is(err, history.ErrNoRuns) {
			respondError(w, http.StatusNotFound, "no_runs", "no complete run with polygons is available")
			return
		}
		h.logger.Error().Err(err).Msg("contour lookup failed")
		respondError(w, http.StatusInternalServerError, "internal", "run lookup failed")
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	respondGeoJSON(w, output.BuildFeatureCollection(result))
}

// Metadata returns the latest complete run's metadata document.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	result, err := h.runs.LatestComplete(r.Context())
	if err != nil {
		if errors.Is(err, history.ErrNoRuns) {
			respondError(w, http.StatusNotFound, "no_runs", "no complete run with polygons is available")
			return
		}
		h.logger.Error().Err(err).Msg("metadata lookup failed")
		respondError(w, http.StatusInternalServerError, "internal", "run lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, output.BuildMetadata(result))
}
