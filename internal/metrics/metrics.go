// Package metrics records operation latencies and exposes percentile
// summaries for the metrics endpoint.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Well-known series names.
const (
	SeriesStoreWrite   = "store_write"
	SeriesStorageRead  = "storage_read"
	SeriesCommit       = "storage_commit"
	SeriesReconcile    = "reconcile_run"
	SeriesAnomalyScan  = "anomaly_scan"
	SeriesStatsRefresh = "stats_refresh"
)

// Histograms track microseconds from 1us to 60s at 3 significant figures.
const (
	lowestUs  = 1
	highestUs = 60_000_000
	sigfigs   = 3
)

// Summary is a point-in-time percentile view of one series.
type Summary struct {
	Count int64   `json:"count"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
	MaxMs float64 `json:"max_ms"`
}

// Recorder aggregates latency observations per named series.
type Recorder struct {
	mu    sync.Mutex
	hists map[string]*hdrhistogram.Histogram
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{hists: map[string]*hdrhistogram.Histogram{}}
}

// Observe records one latency sample for the named series.
func (r *Recorder) Observe(series string, elapsed time.Duration) {
	us := elapsed.Microseconds()
	if us < lowestUs {
		us = lowestUs
	}
	if us > highestUs {
		us = highestUs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hists[series]
	if !ok {
		h = hdrhistogram.New(lowestUs, highestUs, sigfigs)
		r.hists[series] = h
	}
	_ = h.RecordValue(us)
}

// Snapshot returns percentile summaries for every observed series.
func (r *Recorder) Snapshot() map[string]Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Summary, len(r.hists))
	for name, h := range r.hists {
		out[name] = Summary{
			Count: h.TotalCount(),
			P50Ms: float64(h.ValueAtQuantile(50)) / 1000,
			P95Ms: float64(h.ValueAtQuantile(95)) / 1000,
			P99Ms: float64(h.ValueAtQuantile(99)) / 1000,
			MaxMs: float64(h.Max()) / 1000,
		}
	}
	return out
}

// Series returns the observed series names in stable order.
func (r *Recorder) Series() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.hists))
	for name := range r.hists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ObserveWrite implements pebblestore.MetricsHook.
func (r *Recorder) ObserveWrite(elapsed time.Duration, bytes int) {
	r.Observe(SeriesStoreWrite, elapsed)
}

// ObserveRead implements pebblestore.MetricsHook.
func (r *Recorder) ObserveRead(elapsed time.Duration, bytes int) {
	r.Observe(SeriesStorageRead, elapsed)
}

// ObserveCommit implements pebblestore.MetricsHook.
func (r *Recorder) ObserveCommit(elapsed time.Duration, bytes int) {
	r.Observe(SeriesCommit, elapsed)
}
