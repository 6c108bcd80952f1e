// Package ingest publishes validated telemetry onto the feed.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	"github.com/swimmingwebdev/simpletracker/internal/eventlog"
	"github.com/swimmingwebdev/simpletracker/pkg/id"
	"github.com/swimmingwebdev/simpletracker/pkg/log"
)

// Publisher stamps incoming events with a trace ID and appends them to the
// feed as envelopes.
type Publisher struct {
	feed   *eventlog.Log
	ids    *id.Generator
	logger log.Logger

	now func() time.Time
}

// NewPublisher builds a Publisher over the feed.
func NewPublisher(feed *eventlog.Log, ids *id.Generator, logger log.Logger) *Publisher {
	return &Publisher{
		feed:   feed,
		ids:    ids,
		logger: logger.With(log.Component("ingest")),
		now:    time.Now,
	}
}

// PublishLocation assigns a trace ID, normalizes the timestamp, and appends
// the location envelope. It returns the assigned trace ID.
func (p *Publisher) PublishLocation(ctx context.Context, loc event.Location) (uint64, error) {
	loc.TraceID = p.ids.Next()
	loc.Timestamp = event.NormalizeTimestamp(loc.Timestamp)
	if loc.LocationName == "" {
		loc.LocationName = event.DefaultLocationName
	}
	if err := p.publish(ctx, loc); err != nil {
		return 0, err
	}
	return loc.TraceID, nil
}

// PublishAlert assigns a trace ID, normalizes the timestamp, and appends the
// alert envelope. It returns the assigned trace ID.
func (p *Publisher) PublishAlert(ctx context.Context, al event.Alert) (uint64, error) {
	al.TraceID = p.ids.Next()
	al.Timestamp = event.NormalizeTimestamp(al.Timestamp)
	if al.LocationName == "" {
		al.LocationName = event.DefaultLocationName
	}
	if al.AlertDesc == "" {
		al.AlertDesc = event.DefaultAlertDesc
	}
	if err := p.publish(ctx, al); err != nil {
		return 0, err
	}
	return al.TraceID, nil
}

func (p *Publisher) publish(ctx context.Context, ev event.Event) error {
	emitted := p.now().UTC()
	payload, err := event.EncodeEnvelope(ev, emitted)
	if err != nil {
		return fmt.Errorf("ingest: encode envelope: %w", err)
	}
	seqs, err := p.feed.Append(ctx, []eventlog.AppendRecord{
		{EmittedMs: emitted.UnixMilli(), Payload: payload},
	})
	if err != nil {
		return fmt.Errorf("ingest: append: %w", err)
	}
	p.logger.Debug("event published",
		log.Str("type", ev.Kind().String()),
		log.Uint64("trace_id", ev.Common().TraceID),
		log.Uint64("seq", seqs[0]))
	return nil
}
