// Package anomaly scans the feed for telemetry matching a configurable
// rule and keeps only the most recent finding.
package anomaly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	"github.com/swimmingwebdev/simpletracker/internal/metrics"
	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
	"github.com/swimmingwebdev/simpletracker/pkg/log"
)

// ErrNoFinding is returned by Latest before any anomaly has been detected.
var ErrNoFinding = errors.New("no anomalies have been detected yet")

// DefaultRule flags coordinates whose magnitude makes them impossible
// telemetry rather than a real-world position.
const DefaultRule = "latitude > 1000.0 || latitude < -1000.0 || longitude > 1000.0 || longitude < -1000.0"

const anomalyType = "CoordinateOutOfRange"

var slotKey = []byte("slot/anomalies")

// QueueSource exposes full feed snapshots per event type.
type QueueSource interface {
	Snapshot(ctx context.Context, kind event.Kind) ([]event.Event, error)
}

// Finding is the persisted single-slot anomaly record.
type Finding struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	TraceID     uint64 `json:"trace_id"`
	EventType   string `json:"event_type"`
	AnomalyType string `json:"anomaly_type"`
	Description string `json:"description"`
	DetectedAt  string `json:"detected_at"`
}

// Detector evaluates the anomaly rule over feed snapshots.
type Detector struct {
	db     *pebblestore.DB
	queue  QueueSource
	prg    cel.Program
	rec    *metrics.Recorder
	logger log.Logger

	now func() time.Time
}

// New compiles the rule (DefaultRule when empty) and builds a Detector.
func New(db *pebblestore.DB, queue QueueSource, rule string, rec *metrics.Recorder, logger log.Logger) (*Detector, error) {
	if rule == "" {
		rule = DefaultRule
	}
	env, err := cel.NewEnv(
		cel.Variable("latitude", cel.DoubleType),
		cel.Variable("longitude", cel.DoubleType),
		cel.Variable("trace_id", cel.UintType),
		cel.Variable("event_type", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("anomaly: build rule env: %w", err)
	}
	ast, iss := env.Compile(rule)
	if iss.Err() != nil {
		return nil, fmt.Errorf("anomaly: compile rule: %w", iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("anomaly: rule must yield a boolean, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("anomaly: build rule program: %w", err)
	}
	return &Detector{
		db:     db,
		queue:  queue,
		prg:    prg,
		rec:    rec,
		logger: logger.With(log.Component("anomaly")),
		now:    time.Now,
	}, nil
}

// Latest returns the persisted finding, or ErrNoFinding before one exists.
func (d *Detector) Latest() (Finding, error) {
	raw, err := d.db.Get(slotKey)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return Finding{}, ErrNoFinding
	}
	if err != nil {
		return Finding{}, fmt.Errorf("anomaly: read slot: %w", err)
	}
	var f Finding
	if err := json.Unmarshal(raw, &f); err != nil {
		return Finding{}, fmt.Errorf("anomaly: decode slot: %w", err)
	}
	return f, nil
}

// Detect scans the feed and evaluates the rule over each event. When several
// events match in one pass, the match at the highest trace ID wins; the slot
// is overwritten with that single finding. A pass with no matches returns
// nil and leaves the slot untouched.
func (d *Detector) Detect(ctx context.Context) (*Finding, error) {
	started := time.Now()

	byTrace := map[uint64]event.Event{}
	for _, kind := range event.Kinds() {
		evs, err := d.queue.Snapshot(ctx, kind)
		if err != nil {
			d.logger.Warn("snapshot failed, scanning partial feed",
				log.Str("type", kind.String()), log.Err(err))
			continue
		}
		for _, ev := range evs {
			byTrace[ev.Common().TraceID] = ev
		}
	}

	traces := make([]uint64, 0, len(byTrace))
	for trace := range byTrace {
		traces = append(traces, trace)
	}
	sort.Slice(traces, func(i, j int) bool { return traces[i] < traces[j] })

	var found *Finding
	for _, trace := range traces {
		ev := byTrace[trace]
		match, err := d.eval(ev)
		if err != nil {
			d.logger.Warn("rule evaluation failed", log.Uint64("trace_id", trace), log.Err(err))
			continue
		}
		if match {
			f := d.finding(ev)
			found = &f
		}
	}

	if d.rec != nil {
		d.rec.Observe(metrics.SeriesAnomalyScan, time.Since(started))
	}
	if found == nil {
		return nil, nil
	}

	raw, err := json.Marshal(found)
	if err != nil {
		return nil, fmt.Errorf("anomaly: encode finding: %w", err)
	}
	if err := d.db.Set(slotKey, raw); err != nil {
		return nil, fmt.Errorf("anomaly: write finding: %w", err)
	}
	d.logger.Info("anomaly detected",
		log.Uint64("trace_id", found.TraceID),
		log.Str("type", found.EventType),
		log.Str("description", found.Description))
	return found, nil
}

func (d *Detector) eval(ev event.Event) (bool, error) {
	b := ev.Common()
	var eventType string
	switch ev.Kind() {
	case event.KindLocation:
		eventType = event.TypeLocation
	case event.KindAlert:
		eventType = event.TypeAlert
	}
	out, _, err := d.prg.Eval(map[string]any{
		"latitude":   b.Latitude,
		"longitude":  b.Longitude,
		"trace_id":   b.TraceID,
		"event_type": eventType,
	})
	if err != nil {
		return false, err
	}
	match, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule yielded %T, want bool", out.Value())
	}
	return match, nil
}

func (d *Detector) finding(ev event.Event) Finding {
	b := ev.Common()
	var eventType string
	switch ev.Kind() {
	case event.KindLocation:
		eventType = event.TypeLocation
	case event.KindAlert:
		eventType = event.TypeAlert
	}
	return Finding{
		ID:          uuid.NewString(),
		EventID:     b.DeviceID,
		TraceID:     b.TraceID,
		EventType:   eventType,
		AnomalyType: anomalyType,
		Description: fmt.Sprintf("coordinates (%.2f, %.2f) outside accepted range", b.Latitude, b.Longitude),
		DetectedAt:  event.FormatTimestamp(d.now().UTC()),
	}
}
