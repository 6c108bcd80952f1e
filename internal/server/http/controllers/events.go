package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	"github.com/swimmingwebdev/simpletracker/internal/ingest"
)

// EventsController handles the producer-facing publish endpoints.
//
// Devices post raw telemetry here; the controller validates the body,
// delegates trace assignment and normalization to the publisher, and
// reports the assigned trace ID.
type EventsController struct {
	pub *ingest.Publisher
}

// NewEventsController creates a new events controller.
func NewEventsController(pub *ingest.Publisher) *EventsController {
	return &EventsController{pub: pub}
}

// RegisterRoutes registers publish routes with the given mux.
func (c *EventsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/events/track-gps", c.handleTrackGPS)
	mux.HandleFunc("/events/track-alerts", c.handleTrackAlerts)
}

// handleTrackGPS publishes one location event.
//
// Returns 201 with the assigned trace_id, 400 on a malformed body, and
// 503 when the feed cannot accept the append.
func (c *EventsController) handleTrackGPS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var body event.Location
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}
	trace, err := c.pub.PublishLocation(r.Context(), body)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to publish event")
		return
	}
	writeCreated(w, map[string]uint64{"trace_id": trace})
}

// handleTrackAlerts publishes one alert event.
func (c *EventsController) handleTrackAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var body event.Alert
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}
	trace, err := c.pub.PublishAlert(r.Context(), body)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to publish event")
		return
	}
	writeCreated(w, map[string]uint64{"trace_id": trace})
}
