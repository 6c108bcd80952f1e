package controllers

import (
	"errors"
	"net/http"

	"github.com/swimmingwebdev/simpletracker/internal/anomaly"
)

// AnomaliesController serves detector scans and the latest finding.
type AnomaliesController struct {
	det *anomaly.Detector
}

// NewAnomaliesController creates a new anomalies controller.
func NewAnomaliesController(det *anomaly.Detector) *AnomaliesController {
	return &AnomaliesController{det: det}
}

// RegisterRoutes registers anomaly routes with the given mux.
func (c *AnomaliesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/anomalies", c.handleGet)
	mux.HandleFunc("/anomalies/update", c.handleUpdate)
}

// handleUpdate triggers one detector scan. Returns the new finding, or
// 204 when the scan matched nothing.
func (c *AnomaliesController) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	f, err := c.det.Detect(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Anomaly scan failed")
		return
	}
	if f == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, f)
}

// handleGet returns the latest finding, or 404 before one exists.
func (c *AnomaliesController) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	f, err := c.det.Latest()
	if errors.Is(err, anomaly.ErrNoFinding) {
		writeError(w, http.StatusNotFound, "No anomalies have been detected yet")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read finding")
		return
	}
	writeJSON(w, f)
}
