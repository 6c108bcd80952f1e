// Package config provides loading and environment overlay for the
// simpletracker runtime configuration. It exposes a Default() baseline,
// YAML/JSON file loading, and a TRACKER_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/simpletracker.yml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
