package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/event"
)

// Helper functions for common HTTP responses

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// writeCreated writes a 201 Created response with a JSON body.
func writeCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(data)
}

// parseIndex parses an index query value.
//
// Returns 0 for empty strings; -1 for values that are not non-negative
// integers.
func parseIndex(s string) int {
	if s == "" {
		return 0
	}
	if idx, err := strconv.Atoi(s); err == nil && idx >= 0 {
		return idx
	}
	return -1
}

// parseTimestamp parses an RFC3339 query value.
//
// Malformed values fall back to the epoch sentinel rather than erroring,
// matching the boundary rule for timestamps.
func parseTimestamp(s string) time.Time {
	return event.ParseTimestamp(s)
}
