package event

import (
	"time"
)

// SentinelTimestamp replaces any timestamp that fails to parse. The
// pipeline never rejects an event over a bad clock; it pins it to the
// epoch sentinel instead.
const SentinelTimestamp = "2000-01-01T00:00:00Z"

// SentinelTime is SentinelTimestamp as a time.Time.
var SentinelTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// NormalizeTimestamp converts any RFC3339 timestamp to UTC with a literal
// Z suffix. Malformed input yields SentinelTimestamp.
func NormalizeTimestamp(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return SentinelTimestamp
	}
	return FormatTimestamp(t)
}

// FormatTimestamp renders t as UTC RFC3339 with a Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// ParseTimestamp parses a boundary timestamp. Malformed input yields
// SentinelTime rather than an error, matching the boundary contract.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return SentinelTime
	}
	return t.UTC()
}

// Day returns the calendar-day part (YYYY-MM-DD) of a normalized timestamp.
func Day(timestamp string) string {
	if len(timestamp) < 10 {
		return timestamp
	}
	return timestamp[:10]
}
