package store

import (
	"context"
	"testing"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
)

func openTestStore(t *testing.T) *PebbleStore {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := NewPebbleStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func testLocation(device string, trace uint64) event.Location {
	return event.Location{Base: event.Base{
		DeviceID:     device,
		Latitude:     49.28,
		Longitude:    -123.12,
		LocationName: "Vancouver",
		Timestamp:    "2025-04-01T10:00:00Z",
		TraceID:      trace,
	}}
}

func testAlert(device string, trace uint64) event.Alert {
	return event.Alert{
		Base: event.Base{
			DeviceID:     device,
			Latitude:     49.28,
			Longitude:    -123.12,
			LocationName: "Vancouver",
			Timestamp:    "2025-04-01T10:00:00Z",
			TraceID:      trace,
		},
		AlertDesc: "geofence exit",
	}
}

func TestPebbleStoreInsertAndQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	for i := uint64(1); i <= 3; i++ {
		if err := s.InsertLocation(ctx, testLocation("dev-1", i)); err != nil {
			t.Fatalf("insert location %d: %v", i, err)
		}
		clock = clock.Add(time.Second)
	}
	if err := s.InsertAlert(ctx, testAlert("dev-1", 10)); err != nil {
		t.Fatalf("insert alert: %v", err)
	}

	locs, err := s.QueryLocations(ctx, base, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("query locations: %v", err)
	}
	if len(locs) != 3 {
		t.Fatalf("locations = %d, want 3", len(locs))
	}
	for i, loc := range locs {
		if want := uint64(i + 1); loc.TraceID != want {
			t.Fatalf("location %d trace = %d, want %d", i, loc.TraceID, want)
		}
	}

	alerts, err := s.QueryAlerts(ctx, base, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("query alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].AlertDesc != "geofence exit" {
		t.Fatalf("alerts = %+v, want single geofence exit", alerts)
	}
}

func TestPebbleStoreRangeIsHalfOpen(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	stamps := []time.Time{base, base.Add(time.Second), base.Add(2 * time.Second)}
	for i, ts := range stamps {
		s.now = func() time.Time { return ts }
		if err := s.InsertLocation(ctx, testLocation("dev-1", uint64(i+1))); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	// [base, base+2s) includes the first two rows and excludes the one
	// stamped exactly at the end boundary.
	locs, err := s.QueryLocations(ctx, base, base.Add(2*time.Second))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(locs) != 2 {
		t.Fatalf("locations = %d, want 2", len(locs))
	}
	if locs[0].TraceID != 1 || locs[1].TraceID != 2 {
		t.Fatalf("traces = %d,%d, want 1,2", locs[0].TraceID, locs[1].TraceID)
	}
}

func TestPebbleStoreEmptyRangeReturnsEmptySlices(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	locs, err := s.QueryLocations(ctx, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("query locations: %v", err)
	}
	if locs == nil || len(locs) != 0 {
		t.Fatalf("locations = %#v, want empty non-nil slice", locs)
	}
	alerts, err := s.QueryAlerts(ctx, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("query alerts: %v", err)
	}
	if alerts == nil || len(alerts) != 0 {
		t.Fatalf("alerts = %#v, want empty non-nil slice", alerts)
	}
}

func TestPebbleStoreSequenceSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	s, err := NewPebbleStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ts := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return ts }
	if err := s.InsertLocation(ctx, testLocation("dev-1", 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err = pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err = NewPebbleStore(db)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	// A row written at the same millisecond after reopen must not collide
	// with the earlier one.
	s.now = func() time.Time { return ts }
	if err := s.InsertLocation(ctx, testLocation("dev-1", 2)); err != nil {
		t.Fatalf("insert after reopen: %v", err)
	}
	locs, err := s.QueryLocations(ctx, ts, ts.Add(time.Second))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(locs) != 2 {
		t.Fatalf("locations = %d, want 2", len(locs))
	}
}
