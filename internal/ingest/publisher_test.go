package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	"github.com/swimmingwebdev/simpletracker/internal/eventlog"
	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
	"github.com/swimmingwebdev/simpletracker/pkg/id"
	"github.com/swimmingwebdev/simpletracker/pkg/log"
)

func openTestFeed(t *testing.T) *eventlog.Log {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	feed, err := eventlog.OpenLog(db, "events", 0)
	if err != nil {
		t.Fatalf("open feed: %v", err)
	}
	return feed
}

func TestPublishAssignsUniqueTraceIDs(t *testing.T) {
	feed := openTestFeed(t)
	p := NewPublisher(feed, id.NewGenerator(), log.NewTestLogger())
	ctx := context.Background()

	loc := event.Location{Base: event.Base{
		DeviceID: "dev-1", Latitude: 49.28, Longitude: -123.12,
		Timestamp: "2025-02-11T15:30:00+05:00",
	}}
	first, err := p.PublishLocation(ctx, loc)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	second, err := p.PublishLocation(ctx, loc)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if first == 0 || second == 0 || first == second {
		t.Fatalf("trace ids = %d, %d; want distinct nonzero", first, second)
	}

	items := feed.Read(eventlog.ReadOptions{})
	if len(items) != 2 {
		t.Fatalf("feed holds %d entries, want 2", len(items))
	}
	ev, err := event.DecodeEnvelope(items[0].Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Common().Timestamp != "2025-02-11T10:30:00Z" {
		t.Fatalf("timestamp = %q, want normalized UTC", ev.Common().Timestamp)
	}
	if ev.Common().TraceID != first {
		t.Fatalf("trace = %d, want %d", ev.Common().TraceID, first)
	}
}

func TestPublishAlertDefaultsDescription(t *testing.T) {
	feed := openTestFeed(t)
	p := NewPublisher(feed, id.NewGenerator(), log.NewTestLogger())

	trace, err := p.PublishAlert(context.Background(), event.Alert{Base: event.Base{
		DeviceID: "dev-2", Latitude: 49.28, Longitude: -123.12,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	items := feed.Read(eventlog.ReadOptions{})
	ev, err := event.DecodeEnvelope(items[0].Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	al, ok := ev.(event.Alert)
	if !ok || al.TraceID != trace {
		t.Fatalf("event = %+v", ev)
	}
	if al.AlertDesc != event.DefaultAlertDesc {
		t.Fatalf("alert_desc = %q, want default", al.AlertDesc)
	}
}
