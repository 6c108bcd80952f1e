// Package runtime wires storage and config into a single-node tracker
// instance. It exposes Open/Close, basic health checks, and helpers to
// open the telemetry feed used by higher-level services.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	// Health
//	_ = rt.CheckHealth(context.Background())
//	// Open the feed and append
//	feed, _ := rt.OpenFeed()
//	_, _ = feed.Append(context.Background(), []eventlog.AppendRecord{{Payload: []byte("hello")}})
package runtime
