package config

import (
	"os"
	"strconv"
)

// FromEnv overlays TRACKER_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setStr("TRACKER_HTTP_ADDR", &cfg.HTTPAddr)
	setStr("TRACKER_DATA_DIR", &cfg.DataDir)

	setStr("TRACKER_FEED_TOPIC", &cfg.Feed.Topic)
	setInt("TRACKER_FEED_PARTITIONS", &cfg.Feed.Partitions)
	setInt("TRACKER_FEED_RETENTION_HOURS", &cfg.Feed.RetentionHours)
	if v := os.Getenv("TRACKER_FEED_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Feed.MaxBytes = n
		}
	}

	setStr("TRACKER_STORE_BACKEND", &cfg.Store.Backend)
	setStr("TRACKER_STORE_DSN", &cfg.Store.DSN)
	setInt("TRACKER_STORE_CONNECT_ATTEMPTS", &cfg.Store.ConnectAttempts)
	setInt("TRACKER_STORE_CONNECT_DELAY_S", &cfg.Store.ConnectDelaySeconds)

	setStr("TRACKER_PERSISTER_GROUP", &cfg.Persister.Group)
	setInt("TRACKER_PERSISTER_RETRY_BACKOFF_S", &cfg.Persister.RetryBackoffSeconds)
	setInt("TRACKER_PERSISTER_TOPIC_BACKOFF_S", &cfg.Persister.TopicBackoffSeconds)
	setInt("TRACKER_PERSISTER_BATCH_SIZE", &cfg.Persister.BatchSize)

	setInt("TRACKER_SNAPSHOT_IDLE_MS", &cfg.Snapshot.IdleTimeoutMs)
	setInt("TRACKER_RECONCILE_DEADLINE_S", &cfg.Reconcile.DeadlineSeconds)
	setStr("TRACKER_ANOMALY_RULE", &cfg.Anomaly.Rule)

	setInt("TRACKER_STATS_INTERVAL_S", &cfg.Scheduler.StatsIntervalSeconds)
	setInt("TRACKER_RECONCILE_INTERVAL_S", &cfg.Scheduler.ReconcileIntervalSeconds)
	setInt("TRACKER_ANOMALY_INTERVAL_S", &cfg.Scheduler.AnomalyIntervalSeconds)
	setInt("TRACKER_TRIM_INTERVAL_S", &cfg.Scheduler.TrimIntervalSeconds)

	setStr("TRACKER_LOG_LEVEL", &cfg.Log.Level)
	setStr("TRACKER_LOG_FORMAT", &cfg.Log.Format)
}
