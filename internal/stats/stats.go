// Package stats maintains cumulative event counters behind a watermark.
//
// Each Populate pass queries only the rows stored since the previous
// watermark, folds them into the running totals, and overwrites the single
// stats slot. Totals never decrease.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	"github.com/swimmingwebdev/simpletracker/internal/metrics"
	"github.com/swimmingwebdev/simpletracker/internal/store"
	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
	"github.com/swimmingwebdev/simpletracker/pkg/log"
)

// ErrNoStats is returned by Get before the first successful Populate.
var ErrNoStats = errors.New("statistics do not exist")

var slotKey = []byte("slot/stats")

// Snapshot is the persisted cumulative view.
type Snapshot struct {
	NumGPSEvents       uint64 `json:"num_gps_events"`
	NumAlertEvents     uint64 `json:"num_alert_events"`
	MaxAlertsPerDay    int    `json:"max_alerts_per_day"`
	PeakGPSActivityDay string `json:"peak_gps_activity_day"`
	// PeakGPSCount carries the count behind PeakGPSActivityDay so later
	// deltas can challenge it.
	PeakGPSCount int    `json:"peak_gps_count"`
	LastUpdated  string `json:"last_updated"`
}

// Service folds store deltas into the stats slot.
type Service struct {
	db     *pebblestore.DB
	store  store.Store
	rec    *metrics.Recorder
	logger log.Logger

	// now is the watermark clock, overridable in tests.
	now func() time.Time
}

// New builds a stats Service over the slot DB and range store.
func New(db *pebblestore.DB, st store.Store, rec *metrics.Recorder, logger log.Logger) *Service {
	return &Service{
		db:     db,
		store:  st,
		rec:    rec,
		logger: logger.With(log.Component("stats")),
		now:    time.Now,
	}
}

// Get returns the persisted snapshot, or ErrNoStats before the first run.
func (s *Service) Get() (Snapshot, error) {
	raw, err := s.db.Get(slotKey)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return Snapshot{}, ErrNoStats
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("stats: read slot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("stats: decode slot: %w", err)
	}
	return snap, nil
}

// Populate advances the counters over [last_updated, now) and overwrites the
// slot. A failed range read skips the cycle and leaves the slot untouched.
func (s *Service) Populate(ctx context.Context) error {
	started := time.Now()

	snap, err := s.Get()
	if errors.Is(err, ErrNoStats) {
		snap = Snapshot{LastUpdated: event.SentinelTimestamp}
	} else if err != nil {
		return err
	}

	start := event.ParseTimestamp(snap.LastUpdated)
	end := s.now().UTC()

	locs, err := s.store.QueryLocations(ctx, start, end)
	if err != nil {
		return fmt.Errorf("stats: query locations: %w", err)
	}
	alerts, err := s.store.QueryAlerts(ctx, start, end)
	if err != nil {
		return fmt.Errorf("stats: query alerts: %w", err)
	}

	snap.NumGPSEvents += uint64(len(locs))
	snap.NumAlertEvents += uint64(len(alerts))

	gpsPerDay := map[string]int{}
	for _, loc := range locs {
		gpsPerDay[event.Day(loc.Timestamp)]++
	}
	for day, n := range gpsPerDay {
		if n > snap.PeakGPSCount {
			snap.PeakGPSCount = n
			snap.PeakGPSActivityDay = day
		}
	}
	alertsPerDay := map[string]int{}
	for _, al := range alerts {
		alertsPerDay[event.Day(al.Timestamp)]++
	}
	for _, n := range alertsPerDay {
		if n > snap.MaxAlertsPerDay {
			snap.MaxAlertsPerDay = n
		}
	}

	snap.LastUpdated = event.FormatTimestamp(end)

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("stats: encode slot: %w", err)
	}
	if err := s.db.Set(slotKey, raw); err != nil {
		return fmt.Errorf("stats: write slot: %w", err)
	}

	if s.rec != nil {
		s.rec.Observe(metrics.SeriesStatsRefresh, time.Since(started))
	}
	s.logger.Info("stats refreshed",
		log.Int("new_gps", len(locs)),
		log.Int("new_alerts", len(alerts)),
		log.Uint64("total_gps", snap.NumGPSEvents),
		log.Uint64("total_alerts", snap.NumAlertEvents))
	return nil
}
