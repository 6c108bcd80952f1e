// Package store persists telemetry events and serves time-bounded range
// reads over them. The persister is the sole writer; rows are immutable
// after insert apart from the engine-assigned creation stamp, and
// duplicate inserts from redelivery are tolerated rather than prevented.
//
// Two backends implement the contract: an embedded Pebble keyspace (the
// default) and a MySQL schema matching the system's track_locations /
// track_alerts tables.
package store

import (
	"context"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/event"
)

// Store is the write and range-read surface consumed by the persister,
// the stats aggregator, and the reconciliation engine.
type Store interface {
	// InsertLocation writes one location ping. The creation stamp is
	// assigned by the backend at insert time.
	InsertLocation(ctx context.Context, loc event.Location) error
	// InsertAlert writes one alert.
	InsertAlert(ctx context.Context, al event.Alert) error

	// QueryLocations returns location rows created within [start, end),
	// ordered by creation time. No matches yields an empty slice, not an
	// error.
	QueryLocations(ctx context.Context, start, end time.Time) ([]event.Location, error)
	// QueryAlerts is QueryLocations for alerts.
	QueryAlerts(ctx context.Context, start, end time.Time) ([]event.Alert, error)

	Close() error
}
