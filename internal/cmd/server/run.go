package serverrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/anomaly"
	cfgpkg "github.com/swimmingwebdev/simpletracker/internal/config"
	"github.com/swimmingwebdev/simpletracker/internal/eventlog"
	"github.com/swimmingwebdev/simpletracker/internal/ingest"
	"github.com/swimmingwebdev/simpletracker/internal/metrics"
	"github.com/swimmingwebdev/simpletracker/internal/persister"
	"github.com/swimmingwebdev/simpletracker/internal/reconcile"
	"github.com/swimmingwebdev/simpletracker/internal/runtime"
	httpserver "github.com/swimmingwebdev/simpletracker/internal/server/http"
	"github.com/swimmingwebdev/simpletracker/internal/server/http/controllers"
	"github.com/swimmingwebdev/simpletracker/internal/snapshot"
	"github.com/swimmingwebdev/simpletracker/internal/stats"
	"github.com/swimmingwebdev/simpletracker/internal/store"
	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
	"github.com/swimmingwebdev/simpletracker/pkg/id"
	logpkg "github.com/swimmingwebdev/simpletracker/pkg/log"
)

// Options configures one server process.
type Options struct {
	DataDir  string
	HTTPAddr string
	Fsync    pebblestore.FsyncMode
	Config   cfgpkg.Config
}

// Run starts the runtime, the HTTP server, the persister, and the scheduled
// engines, and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so callers that
	// don't pass a signal-aware context still shut down cleanly.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if opts.DataDir == "" {
		opts.DataDir = cfg.DataDir
	}
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = cfg.HTTPAddr
	}

	procLogger, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		// Fall back to a sane default rather than refusing to start.
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(cfg.Log.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	rec := metrics.NewRecorder()
	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{DataDir: storeDir, Fsync: opts.Fsync, Config: cfg, Metrics: rec})
	if err != nil {
		return err
	}
	defer rt.Close()

	st, err := openStore(rt, cfg.Store)
	if err != nil {
		// Store unreachable after bounded retries is the one fatal
		// startup failure.
		return err
	}
	defer st.Close()

	feed, err := rt.OpenFeed()
	if err != nil {
		return err
	}

	procLogger.Info("Starting tracker server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("store", cfg.Store.Backend),
		logpkg.Str("topic", cfg.Feed.Topic),
		logpkg.Str("level", cfg.Log.Level),
		logpkg.Str("format", cfg.Log.Format),
	)

	reader := snapshot.NewReader(feed, time.Duration(cfg.Snapshot.IdleTimeoutMs)*time.Millisecond, procLogger)
	statsSvc := stats.New(rt.DB(), st, rec, procLogger)
	engine := reconcile.New(rt.DB(), st, statsSvc, reader, rec, procLogger,
		time.Duration(cfg.Reconcile.DeadlineSeconds)*time.Second)
	det, err := anomaly.New(rt.DB(), reader, cfg.Anomaly.Rule, rec, procLogger)
	if err != nil {
		return err
	}
	pub := ingest.NewPublisher(feed, id.NewGenerator(), procLogger)

	cons := persister.New(rt.OpenFeed, st, procLogger, persister.Config{
		Group:        cfg.Persister.Group,
		RetryBackoff: time.Duration(cfg.Persister.RetryBackoffSeconds) * time.Second,
		TopicBackoff: time.Duration(cfg.Persister.TopicBackoffSeconds) * time.Second,
		BatchSize:    cfg.Persister.BatchSize,
		IdleTimeout:  time.Duration(cfg.Snapshot.IdleTimeoutMs) * time.Millisecond,
	})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := cons.Run(sctx); err != nil && sctx.Err() == nil {
			procLogger.Error("persister stopped", logpkg.Err(err))
		}
	}()

	runEvery(sctx, &wg, seconds(cfg.Scheduler.StatsIntervalSeconds), func(c context.Context) {
		if err := statsSvc.Populate(c); err != nil {
			procLogger.Warn("stats refresh failed", logpkg.Err(err))
		}
	})
	runEvery(sctx, &wg, seconds(cfg.Scheduler.ReconcileIntervalSeconds), func(c context.Context) {
		if _, err := engine.Run(c); err != nil {
			procLogger.Warn("reconciliation failed", logpkg.Err(err))
		}
	})
	runEvery(sctx, &wg, seconds(cfg.Scheduler.AnomalyIntervalSeconds), func(c context.Context) {
		if _, err := det.Detect(c); err != nil {
			procLogger.Warn("anomaly scan failed", logpkg.Err(err))
		}
	})
	runEvery(sctx, &wg, seconds(cfg.Scheduler.TrimIntervalSeconds), func(c context.Context) {
		trimFeed(c, feed, cfg.Feed, procLogger)
	})

	hsrv := httpserver.New(controllers.Deps{
		Runtime:   rt,
		Publisher: pub,
		Reader:    reader,
		Store:     st,
		Stats:     statsSvc,
		Reconcile: engine,
		Anomaly:   det,
		Metrics:   rec,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server stopped", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	// Close the server before the runtime/DB to avoid handler races.
	hsrv.Close()
	wg.Wait()
	return nil
}

// openStore selects the configured store backend. MySQL startup retries are
// bounded; exhausting them fails the process.
func openStore(rt *runtime.Runtime, cfg cfgpkg.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "", "pebble":
		return store.NewPebbleStore(rt.DB())
	case "mysql":
		return store.ConnectWithRetry(cfg.DSN, cfg.ConnectAttempts,
			time.Duration(cfg.ConnectDelaySeconds)*time.Second)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// runEvery runs fn every interval until ctx is cancelled. A zero interval
// disables the loop and leaves the operation on-demand.
func runEvery(ctx context.Context, wg *sync.WaitGroup, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn(ctx)
			}
		}
	}()
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// trimFeed drops entries past the retention window, then enforces the
// feed's total byte budget.
func trimFeed(ctx context.Context, feed *eventlog.Log, cfg cfgpkg.FeedConfig, logger logpkg.Logger) {
	if cfg.RetentionHours > 0 {
		cutoff := time.Now().Add(-time.Duration(cfg.RetentionHours) * time.Hour).UnixMilli()
		if n, _, err := feed.TrimOlderThan(ctx, cutoff, 1024, 0); err != nil {
			logger.Warn("retention trim failed", logpkg.Err(err))
		} else if n > 0 {
			logger.Info("retention trim", logpkg.Int("removed", n))
		}
	}
	if cfg.MaxBytes > 0 {
		if n, err := feed.TrimToMaxBytes(ctx, cfg.MaxBytes, 1024, 0); err != nil {
			logger.Warn("size trim failed", logpkg.Err(err))
		} else if n > 0 {
			logger.Info("size trim", logpkg.Int("removed", n))
		}
	}
}
