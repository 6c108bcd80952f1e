package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	"github.com/swimmingwebdev/simpletracker/internal/snapshot"
)

// ReadingsController serves index reads against the feed.
//
// Each request rescans the retained feed, so responses reflect exactly
// what the feed holds at request time.
type ReadingsController struct {
	reader *snapshot.Reader
}

// NewReadingsController creates a new readings controller.
func NewReadingsController(reader *snapshot.Reader) *ReadingsController {
	return &ReadingsController{reader: reader}
}

// RegisterRoutes registers feed read routes with the given mux.
func (c *ReadingsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/track/locations", c.handleLocation)
	mux.HandleFunc("/track/alerts", c.handleAlert)
	mux.HandleFunc("/stats/queue", c.handleCounts)
}

func (c *ReadingsController) handleLocation(w http.ResponseWriter, r *http.Request) {
	c.handleRead(w, r, event.KindLocation)
}

func (c *ReadingsController) handleAlert(w http.ResponseWriter, r *http.Request) {
	c.handleRead(w, r, event.KindAlert)
}

// handleRead returns the index-th event of one type, or 404 past the end
// of the feed.
func (c *ReadingsController) handleRead(w http.ResponseWriter, r *http.Request, kind event.Kind) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	index := parseIndex(r.URL.Query().Get("index"))
	if index < 0 {
		writeError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}
	ev, err := c.reader.Read(r.Context(), kind, index)
	if errors.Is(err, snapshot.ErrNotFound) {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("Could not find %s event at index %d", kind, index))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read feed")
		return
	}
	writeJSON(w, ev)
}

// handleCounts tallies both event types across the retained feed.
func (c *ReadingsController) handleCounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	counts, err := c.reader.Counts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to scan feed")
		return
	}
	writeJSON(w, counts)
}
