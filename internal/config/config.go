package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	HTTPAddr  string          `json:"httpAddr" yaml:"httpAddr"`
	DataDir   string          `json:"dataDir" yaml:"dataDir"`
	Feed      FeedConfig      `json:"feed" yaml:"feed"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Persister PersisterConfig `json:"persister" yaml:"persister"`
	Snapshot  SnapshotConfig  `json:"snapshot" yaml:"snapshot"`
	Reconcile ReconcileConfig `json:"reconcile" yaml:"reconcile"`
	Anomaly   AnomalyConfig   `json:"anomaly" yaml:"anomaly"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// FeedConfig describes the durable telemetry feed.
type FeedConfig struct {
	Topic          string `json:"topic" yaml:"topic"`
	Partitions     int    `json:"partitions" yaml:"partitions"`
	RetentionHours int    `json:"retentionHours" yaml:"retentionHours"`
	MaxBytes       int64  `json:"maxBytes" yaml:"maxBytes"`
}

// StoreConfig selects and configures the range-query store backend.
type StoreConfig struct {
	// Backend is "pebble" (embedded, default) or "mysql".
	Backend string `json:"backend" yaml:"backend"`
	// DSN is the MySQL DSN when Backend is "mysql".
	DSN string `json:"dsn" yaml:"dsn"`
	// ConnectAttempts bounds startup retries before the process gives up.
	ConnectAttempts int `json:"connectAttempts" yaml:"connectAttempts"`
	// ConnectDelaySeconds is the pause between startup retries.
	ConnectDelaySeconds int `json:"connectDelaySeconds" yaml:"connectDelaySeconds"`
}

// PersisterConfig tunes the durable consumer.
type PersisterConfig struct {
	Group string `json:"group" yaml:"group"`
	// RetryBackoffSeconds is the pause after a broken subscription.
	RetryBackoffSeconds int `json:"retryBackoffSeconds" yaml:"retryBackoffSeconds"`
	// TopicBackoffSeconds is the longer pause when the topic is absent.
	TopicBackoffSeconds int `json:"topicBackoffSeconds" yaml:"topicBackoffSeconds"`
	BatchSize           int `json:"batchSize" yaml:"batchSize"`
}

// SnapshotConfig tunes the rescan reader.
type SnapshotConfig struct {
	// IdleTimeoutMs bounds the wait for new messages at end of feed.
	IdleTimeoutMs int `json:"idleTimeoutMs" yaml:"idleTimeoutMs"`
}

// ReconcileConfig tunes the reconciliation engine.
type ReconcileConfig struct {
	// DeadlineSeconds caps a single reconciliation run.
	DeadlineSeconds int `json:"deadlineSeconds" yaml:"deadlineSeconds"`
}

// AnomalyConfig configures the anomaly detector.
type AnomalyConfig struct {
	// Rule is a CEL expression over latitude, longitude, trace_id and
	// event_type. Empty selects the built-in invalid-coordinate rule.
	Rule string `json:"rule" yaml:"rule"`
}

// SchedulerConfig sets background run intervals. Zero disables a loop and
// leaves the operation on-demand via the API.
type SchedulerConfig struct {
	StatsIntervalSeconds     int `json:"statsIntervalSeconds" yaml:"statsIntervalSeconds"`
	ReconcileIntervalSeconds int `json:"reconcileIntervalSeconds" yaml:"reconcileIntervalSeconds"`
	AnomalyIntervalSeconds   int `json:"anomalyIntervalSeconds" yaml:"anomalyIntervalSeconds"`
	TrimIntervalSeconds      int `json:"trimIntervalSeconds" yaml:"trimIntervalSeconds"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		Feed: FeedConfig{
			Topic:          "events",
			Partitions:     1,
			RetentionHours: 168,
		},
		Store: StoreConfig{
			Backend:             "pebble",
			ConnectAttempts:     5,
			ConnectDelaySeconds: 5,
		},
		Persister: PersisterConfig{
			Group:               "event_group",
			RetryBackoffSeconds: 5,
			TopicBackoffSeconds: 10,
			BatchSize:           64,
		},
		Snapshot:  SnapshotConfig{IdleTimeoutMs: 1000},
		Reconcile: ReconcileConfig{DeadlineSeconds: 10},
		Scheduler: SchedulerConfig{
			StatsIntervalSeconds: 10,
			TrimIntervalSeconds:  300,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a YAML or JSON file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		// YAML is the default on-disk format.
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
