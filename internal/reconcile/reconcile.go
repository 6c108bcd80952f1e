// Package reconcile cross-checks the feed, the store, and the cumulative
// counters, and persists a single overwritten drift report.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	"github.com/swimmingwebdev/simpletracker/internal/metrics"
	"github.com/swimmingwebdev/simpletracker/internal/stats"
	"github.com/swimmingwebdev/simpletracker/internal/store"
	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
	"github.com/swimmingwebdev/simpletracker/pkg/log"
)

// ErrNoReport is returned by Latest before the first completed run.
var ErrNoReport = errors.New("no checks have been run yet")

var slotKey = []byte("slot/checks")

// StatsSource exposes the cumulative counters.
type StatsSource interface {
	Get() (stats.Snapshot, error)
}

// QueueSource exposes full feed snapshots per event type.
type QueueSource interface {
	Snapshot(ctx context.Context, kind event.Kind) ([]event.Event, error)
}

// TypeCounts is a per-event-type tally.
type TypeCounts struct {
	GPS    int `json:"gps"`
	Alerts int `json:"alerts"`
}

// Counts groups the tallies of the three sources a run compares.
type Counts struct {
	DB         TypeCounts `json:"db"`
	Queue      TypeCounts `json:"queue"`
	Processing TypeCounts `json:"processing"`
}

// Missing identifies one event present in only one of the two sources.
type Missing struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id"`
	Timestamp string `json:"timestamp"`
	TraceID   uint64 `json:"trace_id"`
}

// Report is the persisted result of one reconciliation run. It is always
// fully overwritten, never patched.
type Report struct {
	ID               string    `json:"id"`
	LastUpdated      string    `json:"last_updated"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Counts           Counts    `json:"counts"`
	NotInDB          []Missing `json:"not_in_db"`
	NotInQueue       []Missing `json:"not_in_queue"`
	// Partial marks a run that hit its deadline before finishing all
	// fetches; the report covers whatever was assembled by then.
	Partial bool `json:"partial,omitempty"`
}

// Engine runs reconciliation passes.
type Engine struct {
	db     *pebblestore.DB
	store  store.Store
	stats  StatsSource
	queue  QueueSource
	rec    *metrics.Recorder
	logger log.Logger

	deadline time.Duration
	now      func() time.Time
}

// New builds an Engine. deadline bounds one run end to end.
func New(db *pebblestore.DB, st store.Store, statsSrc StatsSource, queue QueueSource,
	rec *metrics.Recorder, logger log.Logger, deadline time.Duration) *Engine {
	if deadline <= 0 {
		deadline = 10 * time.Second
	}
	return &Engine{
		db:       db,
		store:    st,
		stats:    statsSrc,
		queue:    queue,
		rec:      rec,
		logger:   logger.With(log.Component("reconcile")),
		deadline: deadline,
		now:      time.Now,
	}
}

// Latest returns the persisted report, or ErrNoReport before the first run.
func (e *Engine) Latest() (Report, error) {
	raw, err := e.db.Get(slotKey)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return Report{}, ErrNoReport
	}
	if err != nil {
		return Report{}, fmt.Errorf("reconcile: read slot: %w", err)
	}
	var rep Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return Report{}, fmt.Errorf("reconcile: decode slot: %w", err)
	}
	return rep, nil
}

// Run performs one reconciliation pass and persists the report. Every fetch
// degrades independently: failed counters become zeros, failed range reads
// and failed snapshots become empty sets. Hitting the deadline abandons the
// remaining fetches but still persists the partial report.
func (e *Engine) Run(ctx context.Context) (rep Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reconcile: run panicked: %v", r)
		}
	}()

	started := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	rep = Report{
		ID:         uuid.NewString(),
		NotInDB:    []Missing{},
		NotInQueue: []Missing{},
	}

	snap, serr := e.stats.Get()
	if serr != nil {
		e.logger.Warn("counters unavailable, using zeros", log.Err(serr))
		snap = stats.Snapshot{}
	}
	rep.Counts.Processing = TypeCounts{GPS: int(snap.NumGPSEvents), Alerts: int(snap.NumAlertEvents)}

	epoch := time.Unix(0, 0).UTC()
	end := e.now().UTC()

	dbByTrace := map[uint64]Missing{}
	if !expired(runCtx, &rep) {
		locs, err := e.store.QueryLocations(runCtx, epoch, end)
		if err != nil {
			e.logger.Warn("location range read failed, using empty set", log.Err(err))
			locs = nil
		}
		for _, loc := range locs {
			dbByTrace[loc.TraceID] = missingFromBase(event.TypeLocation, loc.Base)
		}
		rep.Counts.DB.GPS = len(locs)
	}
	if !expired(runCtx, &rep) {
		alerts, err := e.store.QueryAlerts(runCtx, epoch, end)
		if err != nil {
			e.logger.Warn("alert range read failed, using empty set", log.Err(err))
			alerts = nil
		}
		for _, al := range alerts {
			dbByTrace[al.TraceID] = missingFromBase(event.TypeAlert, al.Base)
		}
		rep.Counts.DB.Alerts = len(alerts)
	}

	queueByTrace := map[uint64]Missing{}
	if !expired(runCtx, &rep) {
		evs, err := e.queue.Snapshot(runCtx, event.KindLocation)
		if err != nil {
			e.logger.Warn("location snapshot failed, using empty set", log.Err(err))
			evs = nil
		}
		for _, ev := range evs {
			queueByTrace[ev.Common().TraceID] = missingFromBase(event.TypeLocation, ev.Common())
		}
		rep.Counts.Queue.GPS = len(evs)
	}
	if !expired(runCtx, &rep) {
		evs, err := e.queue.Snapshot(runCtx, event.KindAlert)
		if err != nil {
			e.logger.Warn("alert snapshot failed, using empty set", log.Err(err))
			evs = nil
		}
		for _, ev := range evs {
			queueByTrace[ev.Common().TraceID] = missingFromBase(event.TypeAlert, ev.Common())
		}
		rep.Counts.Queue.Alerts = len(evs)
	}

	rep.NotInDB = difference(queueByTrace, dbByTrace)
	rep.NotInQueue = difference(dbByTrace, queueByTrace)

	rep.ProcessingTimeMs = time.Since(started).Milliseconds()
	rep.LastUpdated = event.FormatTimestamp(end)

	raw, err := json.Marshal(rep)
	if err != nil {
		return Report{}, fmt.Errorf("reconcile: encode report: %w", err)
	}
	if err := e.db.Set(slotKey, raw); err != nil {
		return Report{}, fmt.Errorf("reconcile: write report: %w", err)
	}

	if e.rec != nil {
		e.rec.Observe(metrics.SeriesReconcile, time.Since(started))
	}
	e.logger.Info("reconciliation complete",
		log.Str("run_id", rep.ID),
		log.Int("not_in_db", len(rep.NotInDB)),
		log.Int("not_in_queue", len(rep.NotInQueue)),
		log.Int64("elapsed_ms", rep.ProcessingTimeMs))
	return rep, nil
}

// expired marks the report partial once the run deadline has passed.
func expired(ctx context.Context, rep *Report) bool {
	if ctx.Err() != nil {
		rep.Partial = true
		return true
	}
	return false
}

func missingFromBase(eventType string, b event.Base) Missing {
	return Missing{
		Type:      eventType,
		DeviceID:  b.DeviceID,
		Timestamp: b.Timestamp,
		TraceID:   b.TraceID,
	}
}

// difference returns the entries of a whose trace is absent from b, in
// ascending trace order.
func difference(a, b map[uint64]Missing) []Missing {
	out := make([]Missing, 0)
	for trace, m := range a {
		if _, ok := b[trace]; !ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TraceID < out[j].TraceID })
	return out
}
