// Package httpserver provides the REST gateway for the tracker: publish
// endpoints for devices, feed and store reads, and the stats, checks, and
// anomaly surfaces.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	s := httpserver.New(deps)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8090")
package httpserver
