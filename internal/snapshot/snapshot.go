// Package snapshot answers index and count queries by rescanning the feed.
//
// Every query walks the retained feed from the earliest entry forward, so
// results reflect exactly what the feed holds at scan time. Scans never
// touch group cursors.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	"github.com/swimmingwebdev/simpletracker/internal/eventlog"
	"github.com/swimmingwebdev/simpletracker/pkg/log"
)

// ErrNotFound is returned when no entry of the requested type exists at the
// requested ordinal.
var ErrNotFound = errors.New("no event at requested index")

const scanBatch = 256

// Reader performs full-feed rescans.
type Reader struct {
	feed   *eventlog.Log
	idle   time.Duration
	logger log.Logger
}

// NewReader builds a Reader over the feed. idle bounds the wait for late
// appends when a query reaches the end of the feed unsatisfied.
func NewReader(feed *eventlog.Log, idle time.Duration, logger log.Logger) *Reader {
	if idle <= 0 {
		idle = time.Second
	}
	return &Reader{
		feed:   feed,
		idle:   idle,
		logger: logger.With(log.Component("snapshot")),
	}
}

// scan walks the feed from the earliest retained entry, invoking visit for
// each decodable entry until visit returns false. Undecodable entries are
// skipped. It returns the sequence after the last entry seen.
func (r *Reader) scan(ctx context.Context, from uint64, visit func(ev event.Event) bool) (uint64, error) {
	next := from
	for {
		if err := ctx.Err(); err != nil {
			return next, err
		}
		items := r.feed.Read(eventlog.ReadOptions{
			Start: eventlog.TokenFromSeq(next),
			Limit: scanBatch,
		})
		if len(items) == 0 {
			return next, nil
		}
		for _, it := range items {
			next = it.Seq + 1
			ev, err := event.DecodeEnvelope(it.Payload)
			if err != nil {
				continue
			}
			if !visit(ev) {
				return next, nil
			}
		}
	}
}

// Read returns the index-th entry of the given kind, counting from zero in
// feed order. If the feed ends before the ordinal is reached it waits up to
// the idle bound for one more append, rescans the tail, then gives up with
// ErrNotFound.
func (r *Reader) Read(ctx context.Context, kind event.Kind, index int) (event.Event, error) {
	if index < 0 {
		return nil, ErrNotFound
	}
	var (
		found event.Event
		seen  int
	)
	visit := func(ev event.Event) bool {
		if ev.Kind() != kind {
			return true
		}
		if seen == index {
			found = ev
			return false
		}
		seen++
		return true
	}

	next, err := r.scan(ctx, 0, visit)
	if err != nil {
		return nil, err
	}
	if found == nil && r.feed.WaitForAppend(r.idle) {
		if next, err = r.scan(ctx, next, visit); err != nil {
			return nil, err
		}
	}
	if found == nil {
		r.logger.Debug("index miss",
			log.Str("type", kind.String()), log.Int("index", index), log.Int("seen", seen))
		return nil, ErrNotFound
	}
	return found, nil
}

// Snapshot returns every entry of the given kind in feed order.
func (r *Reader) Snapshot(ctx context.Context, kind event.Kind) ([]event.Event, error) {
	out := make([]event.Event, 0, scanBatch)
	_, err := r.scan(ctx, 0, func(ev event.Event) bool {
		if ev.Kind() == kind {
			out = append(out, ev)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Counts tallies both event types in a single scan.
type Counts struct {
	Locations int `json:"num_locations"`
	Alerts    int `json:"num_alerts"`
}

// Counts walks the feed once and reports per-type totals.
func (r *Reader) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	_, err := r.scan(ctx, 0, func(ev event.Event) bool {
		switch ev.Kind() {
		case event.KindLocation:
			c.Locations++
		case event.KindAlert:
			c.Alerts++
		}
		return true
	})
	return c, err
}
