package persister

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	"github.com/swimmingwebdev/simpletracker/internal/eventlog"
	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
	"github.com/swimmingwebdev/simpletracker/pkg/log"
)

type fakeStore struct {
	mu        sync.Mutex
	locations []event.Location
	alerts    []event.Alert
	// failInserts makes the next N inserts return an error.
	failInserts int
	attempts    int
}

func (f *fakeStore) fail() error {
	f.attempts++
	if f.failInserts > 0 {
		f.failInserts--
		return errors.New("store down")
	}
	return nil
}

func (f *fakeStore) InsertLocation(ctx context.Context, loc event.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.locations = append(f.locations, loc)
	return nil
}

func (f *fakeStore) InsertAlert(ctx context.Context, al event.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.alerts = append(f.alerts, al)
	return nil
}

func (f *fakeStore) QueryLocations(ctx context.Context, start, end time.Time) ([]event.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Location(nil), f.locations...), nil
}

func (f *fakeStore) QueryAlerts(ctx context.Context, start, end time.Time) ([]event.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Alert(nil), f.alerts...), nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.locations), len(f.alerts)
}

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

func appendEvent(t *testing.T, feed *eventlog.Log, ev event.Event) uint64 {
	t.Helper()
	payload, err := event.EncodeEnvelope(ev, time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	seqs, err := feed.Append(context.Background(), []eventlog.AppendRecord{
		{EmittedMs: time.Now().UnixMilli(), Payload: payload},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return seqs[0]
}

func appendRaw(t *testing.T, feed *eventlog.Log, payload []byte) uint64 {
	t.Helper()
	seqs, err := feed.Append(context.Background(), []eventlog.AppendRecord{
		{EmittedMs: time.Now().UnixMilli(), Payload: payload},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return seqs[0]
}

func testConfig() Config {
	return Config{
		Group:        "event_group",
		RetryBackoff: 10 * time.Millisecond,
		TopicBackoff: 10 * time.Millisecond,
		BatchSize:    16,
		IdleTimeout:  10 * time.Millisecond,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
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

func startPersister(t *testing.T, feed *eventlog.Log, st *fakeStore, cfg Config) (*Persister, context.CancelFunc, chan error) {
	t.Helper()
	p := New(func() (*eventlog.Log, error) { return feed, nil }, st, log.NewTestLogger(), cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	// Tests own the single receive from done; the cleanup only cancels so
	// an early t.Fatal still stops the loop. Run's send is buffered, so an
	// unconsumed result never blocks teardown.
	t.Cleanup(cancel)
	return p, cancel, done
}

func TestPersisterStoresAndCommitsInOrder(t *testing.T) {
	feed := openTestFeed(t)
	appendEvent(t, feed, location(1))
	appendEvent(t, feed, alert(2))
	last := appendEvent(t, feed, location(3))

	st := &fakeStore{}
	p, cancel, done := startPersister(t, feed, st, testConfig())

	waitFor(t, "3 processed", func() bool { return p.Processed() == 3 })
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("run: %v", err)
	}

	locs, alerts := st.counts()
	if locs != 2 || alerts != 1 {
		t.Fatalf("stored %d locations, %d alerts; want 2, 1", locs, alerts)
	}
	tok, ok := feed.GetCursor("event_group")
	if !ok || tok.Seq() != last {
		t.Fatalf("cursor = %v,%v; want committed at %d", tok.Seq(), ok, last)
	}
}

func TestPersisterSkipsMalformedAndCommitsPast(t *testing.T) {
	feed := openTestFeed(t)
	appendRaw(t, feed, []byte("not json"))
	last := appendEvent(t, feed, location(7))

	st := &fakeStore{}
	p, cancel, done := startPersister(t, feed, st, testConfig())

	waitFor(t, "processed and skipped", func() bool {
		return p.Processed() == 1 && p.Skipped() == 1
	})
	cancel()
	<-done

	locs, alerts := st.counts()
	if locs != 1 || alerts != 0 {
		t.Fatalf("stored %d locations, %d alerts; want 1, 0", locs, alerts)
	}
	tok, ok := feed.GetCursor("event_group")
	if !ok || tok.Seq() != last {
		t.Fatalf("cursor = %v,%v; want committed at %d", tok.Seq(), ok, last)
	}
}

func TestPersisterStoreFailureRedelivers(t *testing.T) {
	feed := openTestFeed(t)
	seq := appendEvent(t, feed, location(11))

	st := &fakeStore{failInserts: 2}
	p, cancel, done := startPersister(t, feed, st, testConfig())

	// A failed insert commits nothing; the rebuilt subscription
	// redelivers from the old cursor until the write lands.
	waitFor(t, "successful redelivery", func() bool { return p.Processed() == 1 })
	cancel()
	<-done

	locs, _ := st.counts()
	if locs != 1 {
		t.Fatalf("stored %d locations, want exactly 1", locs)
	}
	if locs := st.locations; locs[0].TraceID != 11 {
		t.Fatalf("trace = %d, want 11", locs[0].TraceID)
	}
	tok, ok := feed.GetCursor("event_group")
	if !ok || tok.Seq() != seq {
		t.Fatalf("cursor = %v,%v; want committed at %d", tok.Seq(), ok, seq)
	}
}

func TestPersisterStopDeliversSingleResult(t *testing.T) {
	feed := openTestFeed(t)
	appendEvent(t, feed, location(1))

	st := &fakeStore{}
	p, cancel, done := startPersister(t, feed, st, testConfig())
	waitFor(t, "1 processed", func() bool { return p.Processed() == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("persister did not stop")
	}

	// Run has exited; nothing further may arrive, and teardown must not
	// wait on done again.
	select {
	case err := <-done:
		t.Fatalf("second result after shutdown: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPersisterResumesAfterCursor(t *testing.T) {
	feed := openTestFeed(t)
	first := appendEvent(t, feed, location(1))
	second := appendEvent(t, feed, location(2))
	if err := feed.CommitCursor("event_group", eventlog.TokenFromSeq(first)); err != nil {
		t.Fatalf("seed cursor: %v", err)
	}

	st := &fakeStore{}
	p, cancel, done := startPersister(t, feed, st, testConfig())

	waitFor(t, "resume past cursor", func() bool { return p.Processed() == 1 })
	cancel()
	<-done

	if locs, _ := st.counts(); locs != 1 {
		t.Fatalf("stored %d locations, want 1", locs)
	}
	if st.locations[0].TraceID != 2 {
		t.Fatalf("trace = %d, want 2 (entry %d already consumed)", st.locations[0].TraceID, first)
	}
	tok, _ := feed.GetCursor("event_group")
	if tok.Seq() != second {
		t.Fatalf("cursor = %d, want %d", tok.Seq(), second)
	}
}
