// Package event defines the telemetry event model shared by the feed, the
// store, and the reports: a closed pair of variants (Location, Alert)
// wrapped in a wire envelope, correlated everywhere by trace ID.
package event

// Kind discriminates the two telemetry variants.
type Kind uint8

const (
	// KindLocation is a GPS location ping (wire type "TrackGPS").
	KindLocation Kind = iota + 1
	// KindAlert is a device alert (wire type "TrackAlerts").
	KindAlert
)

// Wire type names carried in the envelope.
const (
	TypeLocation = "TrackGPS"
	TypeAlert    = "TrackAlerts"
)

// String returns the wire type name for the kind.
func (k Kind) String() string {
	switch k {
	case KindLocation:
		return TypeLocation
	case KindAlert:
		return TypeAlert
	default:
		return "Unknown"
	}
}

// KindFromType maps a wire type name to its Kind.
func KindFromType(s string) (Kind, bool) {
	switch s {
	case TypeLocation:
		return KindLocation, true
	case TypeAlert:
		return KindAlert, true
	default:
		return 0, false
	}
}

// Kinds lists both variants in wire order.
func Kinds() [2]Kind { return [2]Kind{KindLocation, KindAlert} }

// Base is the shape shared by both variants. Timestamp is always UTC
// RFC3339 with a literal Z suffix; TraceID is assigned once at ingress.
type Base struct {
	DeviceID     string  `json:"device_id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LocationName string  `json:"location_name"`
	Timestamp    string  `json:"timestamp"`
	TraceID      uint64  `json:"trace_id"`
}

// Event is the closed telemetry variant. Only Location and Alert implement
// it; dispatch on Variant's Kind is exhaustive.
type Event interface {
	Kind() Kind
	Common() Base
	sealed()
}

// Location is a GPS location ping.
type Location struct {
	Base
}

// Kind returns KindLocation.
func (Location) Kind() Kind { return KindLocation }

// Common returns the shared event shape.
func (l Location) Common() Base { return l.Base }

func (Location) sealed() {}

// Alert is a device alert with a description.
type Alert struct {
	Base
	AlertDesc string `json:"alert_desc"`
}

// Kind returns KindAlert.
func (Alert) Kind() Kind { return KindAlert }

// Common returns the shared event shape.
func (a Alert) Common() Base { return a.Base }

func (Alert) sealed() {}

// Defaults applied to optional fields at ingress.
const (
	DefaultLocationName = "unknown"
	DefaultAlertDesc    = "No description provided."
)
