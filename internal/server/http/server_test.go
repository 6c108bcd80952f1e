package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/anomaly"
	cfgpkg "github.com/swimmingwebdev/simpletracker/internal/config"
	"github.com/swimmingwebdev/simpletracker/internal/ingest"
	"github.com/swimmingwebdev/simpletracker/internal/metrics"
	"github.com/swimmingwebdev/simpletracker/internal/reconcile"
	"github.com/swimmingwebdev/simpletracker/internal/runtime"
	"github.com/swimmingwebdev/simpletracker/internal/server/http/controllers"
	"github.com/swimmingwebdev/simpletracker/internal/snapshot"
	"github.com/swimmingwebdev/simpletracker/internal/stats"
	"github.com/swimmingwebdev/simpletracker/internal/store"
	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
	"github.com/swimmingwebdev/simpletracker/pkg/id"
	"github.com/swimmingwebdev/simpletracker/pkg/log"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := cfgpkg.Default()
	rec := metrics.NewRecorder()
	rt, err := runtime.Open(runtime.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeNever,
		Config:  cfg,
		Metrics: rec,
	})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })

	feed, err := rt.OpenFeed()
	if err != nil {
		t.Fatalf("open feed: %v", err)
	}
	st, err := store.NewPebbleStore(rt.DB())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	logger := log.NewTestLogger()
	reader := snapshot.NewReader(feed, 20*time.Millisecond, logger)
	statsSvc := stats.New(rt.DB(), st, rec, logger)
	engine := reconcile.New(rt.DB(), st, statsSvc, reader, rec, logger, 10*time.Second)
	det, err := anomaly.New(rt.DB(), reader, "", rec, logger)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}

	s := New(controllers.Deps{
		Runtime:   rt,
		Publisher: ingest.NewPublisher(feed, id.NewGenerator(), logger),
		Reader:    reader,
		Store:     st,
		Stats:     statsSvc,
		Reconcile: engine,
		Anomaly:   det,
		Metrics:   rec,
	})
	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts.URL+"/v1/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSlotsNotFoundBeforeFirstRun(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/stats", "/checks", "/anomalies"} {
		resp := get(t, ts.URL+path)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s status = %d, want 404", path, resp.StatusCode)
		}
		var body map[string]string
		decodeBody(t, resp, &body)
		if body["message"] == "" {
			t.Fatalf("%s: missing message body", path)
		}
	}
}

func TestPublishAndReadBack(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/events/track-gps", map[string]any{
		"device_id": "dev-1",
		"latitude":  49.28,
		"longitude": -123.12,
		"timestamp": "2025-02-11T15:30:00+05:00",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("publish status = %d, want 201", resp.StatusCode)
	}
	var created map[string]uint64
	decodeBody(t, resp, &created)
	if created["trace_id"] == 0 {
		t.Fatal("no trace_id assigned")
	}

	read := get(t, ts.URL+"/track/locations?index=0")
	if read.StatusCode != http.StatusOK {
		t.Fatalf("read status = %d, want 200", read.StatusCode)
	}
	var ev map[string]any
	decodeBody(t, read, &ev)
	if ev["device_id"] != "dev-1" {
		t.Fatalf("device_id = %v", ev["device_id"])
	}
	if ev["timestamp"] != "2025-02-11T10:30:00Z" {
		t.Fatalf("timestamp = %v, want normalized UTC", ev["timestamp"])
	}

	miss := get(t, ts.URL+"/track/locations?index=1")
	if miss.StatusCode != http.StatusNotFound {
		t.Fatalf("miss status = %d, want 404", miss.StatusCode)
	}

	counts := get(t, ts.URL+"/stats/queue")
	if counts.StatusCode != http.StatusOK {
		t.Fatalf("counts status = %d", counts.StatusCode)
	}
	var c map[string]int
	decodeBody(t, counts, &c)
	if c["num_locations"] != 1 || c["num_alerts"] != 0 {
		t.Fatalf("counts = %v", c)
	}
}

func TestPublishRejectsBadBody(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/events/track-alerts", map[string]any{
		"latitude": 49.28,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChecksUpdateReportsQueueOnlyEvents(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/events/track-gps", map[string]any{
		"device_id": "dev-1",
		"latitude":  49.28,
		"longitude": -123.12,
		"timestamp": "2025-04-01T10:00:00Z",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("publish status = %d", resp.StatusCode)
	}

	update := postJSON(t, ts.URL+"/checks/update", nil)
	if update.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", update.StatusCode)
	}
	var timing map[string]int64
	decodeBody(t, update, &timing)
	if _, ok := timing["processing_time_ms"]; !ok {
		t.Fatal("missing processing_time_ms")
	}

	// Nothing persisted the event into the store, so it must show up as
	// queue-only drift.
	report := get(t, ts.URL+"/checks")
	if report.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d", report.StatusCode)
	}
	var rep struct {
		NotInDB    []map[string]any `json:"not_in_db"`
		NotInQueue []map[string]any `json:"not_in_queue"`
	}
	decodeBody(t, report, &rep)
	if len(rep.NotInDB) != 1 || len(rep.NotInQueue) != 0 {
		t.Fatalf("drift = %d/%d, want 1/0", len(rep.NotInDB), len(rep.NotInQueue))
	}
}

func TestAnomalyScanFlow(t *testing.T) {
	ts := newTestServer(t)
	client := &http.Client{}

	put := func() *http.Response {
		req, err := http.NewRequest(http.MethodPut, ts.URL+"/anomalies/update", nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("put: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	if resp := put(); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("empty scan status = %d, want 204", resp.StatusCode)
	}

	pub := postJSON(t, ts.URL+"/events/track-gps", map[string]any{
		"device_id": "dev-9",
		"latitude":  5000.0,
		"longitude": 0.0,
		"timestamp": "2025-04-01T10:00:00Z",
	})
	if pub.StatusCode != http.StatusCreated {
		t.Fatalf("publish status = %d", pub.StatusCode)
	}

	if resp := put(); resp.StatusCode != http.StatusOK {
		t.Fatalf("scan status = %d, want 200", resp.StatusCode)
	}
	found := get(t, ts.URL+"/anomalies")
	if found.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", found.StatusCode)
	}
	var f map[string]any
	decodeBody(t, found, &f)
	if f["anomaly_type"] != "CoordinateOutOfRange" {
		t.Fatalf("finding = %v", f)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	// Generate at least one observed series.
	resp := postJSON(t, ts.URL+"/events/track-gps", map[string]any{
		"device_id": "dev-1",
		"latitude":  1.0,
		"longitude": 1.0,
		"timestamp": "2025-04-01T10:00:00Z",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("publish status = %d", resp.StatusCode)
	}

	m := get(t, ts.URL+"/v1/metrics")
	if m.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", m.StatusCode)
	}
	var series map[string]metrics.Summary
	decodeBody(t, m, &series)
	if len(series) == 0 {
		t.Fatal("no series recorded")
	}
	for name, s := range series {
		if s.Count <= 0 {
			t.Fatalf("series %s has count %d", name, s.Count)
		}
	}
}
