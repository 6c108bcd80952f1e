package controllers

import (
	"errors"
	"net/http"

	"github.com/swimmingwebdev/simpletracker/internal/stats"
)

// StatsController serves the cumulative counters and their refresh trigger.
type StatsController struct {
	svc *stats.Service
}

// NewStatsController creates a new stats controller.
func NewStatsController(svc *stats.Service) *StatsController {
	return &StatsController{svc: svc}
}

// RegisterRoutes registers stats routes with the given mux.
func (c *StatsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/stats", c.handleGet)
	mux.HandleFunc("/stats/update", c.handleUpdate)
}

// handleGet returns the persisted counters, or 404 before the first refresh.
func (c *StatsController) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	snap, err := c.svc.Get()
	if errors.Is(err, stats.ErrNoStats) {
		writeError(w, http.StatusNotFound, "Statistics do not exist")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read statistics")
		return
	}
	writeJSON(w, snap)
}

// handleUpdate runs one aggregation pass and returns the updated counters.
func (c *StatsController) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := c.svc.Populate(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update statistics")
		return
	}
	snap, err := c.svc.Get()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read statistics")
		return
	}
	writeJSON(w, snap)
}
