package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	"github.com/swimmingwebdev/simpletracker/internal/eventlog"
	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
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

func appendEvent(t *testing.T, feed *eventlog.Log, ev event.Event) {
	t.Helper()
	payload, err := event.EncodeEnvelope(ev, time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := feed.Append(context.Background(), []eventlog.AppendRecord{
		{EmittedMs: time.Now().UnixMilli(), Payload: payload},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func location(trace uint64) event.Location {
	return event.Location{Base: event.Base{
		DeviceID: "dev-1", Latitude: 49.28, Longitude: -123.12,
		Timestamp: "2025-04-01T10:00:00Z", TraceID: trace,
	}}
}

func alert(trace uint64) event.Alert {
	return event.Alert{
		Base: event.Base{
			DeviceID: "dev-1", Latitude: 49.28, Longitude: -123.12,
			Timestamp: "2025-04-01T10:00:00Z", TraceID: trace,
		},
		AlertDesc: "speeding",
	}
}

func seedFeed(t *testing.T) *eventlog.Log {
	t.Helper()
	feed := openTestFeed(t)
	appendEvent(t, feed, location(1))
	appendEvent(t, feed, alert(2))
	appendEvent(t, feed, location(3))
	appendEvent(t, feed, alert(4))
	appendEvent(t, feed, location(5))
	return feed
}

func newTestReader(feed *eventlog.Log) *Reader {
	return NewReader(feed, 20*time.Millisecond, log.NewTestLogger())
}

func TestReadByTypeAndIndex(t *testing.T) {
	r := newTestReader(seedFeed(t))
	ctx := context.Background()

	ev, err := r.Read(ctx, event.KindLocation, 1)
	if err != nil {
		t.Fatalf("read location 1: %v", err)
	}
	if ev.Common().TraceID != 3 {
		t.Fatalf("location[1] trace = %d, want 3", ev.Common().TraceID)
	}

	ev, err = r.Read(ctx, event.KindAlert, 0)
	if err != nil {
		t.Fatalf("read alert 0: %v", err)
	}
	al, ok := ev.(event.Alert)
	if !ok || al.TraceID != 2 {
		t.Fatalf("alert[0] = %+v, want trace 2", ev)
	}
}

func TestReadIndexOutOfRange(t *testing.T) {
	r := newTestReader(seedFeed(t))
	if _, err := r.Read(context.Background(), event.KindLocation, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := r.Read(context.Background(), event.KindAlert, -1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("negative index err = %v, want ErrNotFound", err)
	}
}

func TestRescanIsDeterministic(t *testing.T) {
	r := newTestReader(seedFeed(t))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ev, err := r.Read(ctx, event.KindLocation, 2)
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		if ev.Common().TraceID != 5 {
			t.Fatalf("pass %d trace = %d, want 5", i, ev.Common().TraceID)
		}
	}
}

func TestSnapshotReturnsAllOfKindInOrder(t *testing.T) {
	r := newTestReader(seedFeed(t))
	evs, err := r.Snapshot(context.Background(), event.KindLocation)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	want := []uint64{1, 3, 5}
	if len(evs) != len(want) {
		t.Fatalf("snapshot len = %d, want %d", len(evs), len(want))
	}
	for i, ev := range evs {
		if ev.Common().TraceID != want[i] {
			t.Fatalf("snapshot[%d] trace = %d, want %d", i, ev.Common().TraceID, want[i])
		}
	}
}

func TestCountsTallyBothKinds(t *testing.T) {
	r := newTestReader(seedFeed(t))
	c, err := r.Counts(context.Background())
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if c.Locations != 3 || c.Alerts != 2 {
		t.Fatalf("counts = %+v, want 3 locations, 2 alerts", c)
	}
}

func TestScanSkipsUndecodableEntries(t *testing.T) {
	feed := openTestFeed(t)
	appendEvent(t, feed, location(1))
	if _, err := feed.Append(context.Background(), []eventlog.AppendRecord{
		{EmittedMs: time.Now().UnixMilli(), Payload: []byte("junk")},
	}); err != nil {
		t.Fatalf("append junk: %v", err)
	}
	appendEvent(t, feed, location(2))

	r := newTestReader(feed)
	c, err := r.Counts(context.Background())
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if c.Locations != 2 || c.Alerts != 0 {
		t.Fatalf("counts = %+v, want 2 locations", c)
	}
}
