package runtime

import (
	"context"
	"errors"
	"sync"

	cfgpkg "github.com/swimmingwebdev/simpletracker/internal/config"
	"github.com/swimmingwebdev/simpletracker/internal/eventlog"
	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	Fsync   pebblestore.FsyncMode
	Config  cfgpkg.Config
	// Metrics observes storage latencies when set.
	Metrics pebblestore.MetricsHook
}

// Runtime wires storage and config for a single-node instance.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config

	mu   sync.Mutex
	feed *eventlog.Log
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: opts.DataDir,
		Fsync:   opts.Fsync,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	rt := &Runtime{db: db, config: opts.Config}
	return rt, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// OpenFeed opens the configured telemetry feed partition. Repeated calls
// return the same instance, so every consumer shares one append-notification
// channel with the publisher.
func (r *Runtime) OpenFeed() (*eventlog.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.feed != nil {
		return r.feed, nil
	}
	feed, err := eventlog.OpenLog(r.db, r.config.Feed.Topic, 0)
	if err != nil {
		return nil, err
	}
	r.feed = feed
	return feed, nil
}

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
