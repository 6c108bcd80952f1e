package controllers

import (
	"net/http"

	"github.com/swimmingwebdev/simpletracker/internal/metrics"
	"github.com/swimmingwebdev/simpletracker/internal/runtime"
)

// GeneralController handles general HTTP endpoints like health and metrics.
type GeneralController struct {
	rt  *runtime.Runtime
	rec *metrics.Recorder
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime, rec *metrics.Recorder) *GeneralController {
	return &GeneralController{rt: rt, rec: rec}
}

// RegisterRoutes registers general routes with the given mux.
//
// This method sets up HTTP endpoints for:
// - Health checks (/v1/healthz)
// - Latency percentiles (/v1/metrics)
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/metrics", c.handleMetrics)
}

// handleHealth returns the health status of the service.
//
// Returns 200 OK with {"status": "ok"} if healthy, 503 Service Unavailable otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleMetrics returns per-series latency percentile summaries.
func (c *GeneralController) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, c.rec.Snapshot())
}
