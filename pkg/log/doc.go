// Package log provides simpletracker's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that preserves our
// formatter/outputs pipeline, so slog-aware tooling keeps working while all
// services log through one consistent surface.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("persister"))
//	l.Info("consumer started", log.Str("group", "event_group"))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config supporting
// text or JSON formatting.
//
// # Interop
//
// To integrate with libraries expecting *log.Logger (Pebble does), use
// RedirectStdLog. Most code should remain against this facade.
package log
