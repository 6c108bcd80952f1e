package controllers

import (
	"errors"
	"net/http"

	"github.com/swimmingwebdev/simpletracker/internal/reconcile"
)

// ChecksController serves reconciliation runs and the latest drift report.
type ChecksController struct {
	engine *reconcile.Engine
}

// NewChecksController creates a new checks controller.
func NewChecksController(engine *reconcile.Engine) *ChecksController {
	return &ChecksController{engine: engine}
}

// RegisterRoutes registers reconciliation routes with the given mux.
func (c *ChecksController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/checks", c.handleGet)
	mux.HandleFunc("/checks/update", c.handleUpdate)
}

// handleUpdate triggers one reconciliation run and reports its duration.
func (c *ChecksController) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	rep, err := c.engine.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Reconciliation failed")
		return
	}
	writeJSON(w, map[string]int64{"processing_time_ms": rep.ProcessingTimeMs})
}

// handleGet returns the latest report, or 404 before the first run.
func (c *ChecksController) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	rep, err := c.engine.Latest()
	if errors.Is(err, reconcile.ErrNoReport) {
		writeError(w, http.StatusNotFound, "No checks have been run yet")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read report")
		return
	}
	writeJSON(w, rep)
}
