package controllers

import (
	"net/http"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/store"
)

// StorageController serves range reads over persisted rows.
type StorageController struct {
	store store.Store
}

// NewStorageController creates a new storage controller.
func NewStorageController(st store.Store) *StorageController {
	return &StorageController{store: st}
}

// RegisterRoutes registers store range-read routes with the given mux.
func (c *StorageController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/store/track/locations", c.handleLocations)
	mux.HandleFunc("/store/track/alerts", c.handleAlerts)
}

// window extracts the half-open [start, end) query window. Missing or
// malformed start falls back to the epoch sentinel; missing end defaults
// to now.
func window(r *http.Request) (time.Time, time.Time) {
	q := r.URL.Query()
	start := parseTimestamp(q.Get("start_timestamp"))
	end := time.Now().UTC()
	if raw := q.Get("end_timestamp"); raw != "" {
		end = parseTimestamp(raw)
	}
	return start, end
}

func (c *StorageController) handleLocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	start, end := window(r)
	rows, err := c.store.QueryLocations(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query locations")
		return
	}
	writeJSON(w, rows)
}

func (c *StorageController) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	start, end := window(r)
	rows, err := c.store.QueryAlerts(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query alerts")
		return
	}
	writeJSON(w, rows)
}
