// Package config defines service configuration structures and loading hooks.
package config

import (
	"time"

	"github.com/okian/teamclash/internal/domain/model"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Store selects the ledger and event backend.
	Store string `koanf:"store" validate:"oneof=memory postgres"`

	// DatabaseDSN is the Postgres connection string; required for the postgres store.
	DatabaseDSN string `koanf:"database_dsn" validate:"required_if=Store postgres"`

	// Teams lists the competing teams. At least two, unique after normalization.
	// "draw" is a reserved outcome and never a team.
	Teams []string `koanf:"teams" validate:"min=2,unique,dive,required,ne=draw"`

	// DefaultRewardAmount is paid per winning user when an event omits its own.
	DefaultRewardAmount int64 `koanf:"default_reward_amount" validate:"gte=0"`

	// SettlementIntervalMS is the settlement tick period. Zero or less disables the loop.
	SettlementIntervalMS int `koanf:"settlement_interval_ms"`

	// SettlementTimeoutMS bounds the store calls for one event.
	SettlementTimeoutMS int `koanf:"settlement_timeout_ms" validate:"gt=0"`

	// SettlementBatchSize caps candidates per pass.
	SettlementBatchSize int `koanf:"settlement_batch_size" validate:"gt=0"`

	// SettlementConcurrency caps events settled in parallel.
	SettlementConcurrency int `koanf:"settlement_concurrency" validate:"gt=0"`

	// MaxEventsLimit caps GET /admin/events?limit.
	MaxEventsLimit int `koanf:"max_events_limit" validate:"gt=0"`

	// DedupeSize bounds the in-flight settlement guard.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=0"`

	// Metrics naming: namespace_subsystem_prefix_name.
	MetricsNamespace string `koanf:"metrics_namespace" validate:"required"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	MetricsPrefix    string `koanf:"metrics_prefix"`

	// MetricsEnabled turns recording off without removing collectors.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsLabels are constant labels on every metric. YAML only.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsLatencyBuckets overrides the latency histogram buckets, in ms.
	// Must be strictly increasing.
	MetricsLatencyBuckets []float64 `koanf:"metrics_latency_buckets" validate:"omitempty,dive,gt=0"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		Store:                 StoreMemory,
		Teams:                 []string{"cat", "dog"},
		DefaultRewardAmount:   model.DefaultRewardAmount,
		SettlementIntervalMS:  60_000,
		SettlementTimeoutMS:   10_000,
		SettlementBatchSize:   50,
		SettlementConcurrency: 4,
		MaxEventsLimit:        100,
		DedupeSize:            10_000,
		MetricsNamespace:      "teamclash",
		MetricsSubsystem:      "competition",
		MetricsEnabled:        true,
	}
}

// SettlementInterval returns the tick period.
func (c *Config) SettlementInterval() time.Duration {
	return time.Duration(c.SettlementIntervalMS) * time.Millisecond
}

// SettlementTimeout returns the per-event store deadline.
func (c *Config) SettlementTimeout() time.Duration {
	return time.Duration(c.SettlementTimeoutMS) * time.Millisecond
}

// TeamList returns the configured teams as model values.
func (c *Config) TeamList() []model.Team {
	out := make([]model.Team, 0, len(c.Teams))
	for _, t := range c.Teams {
		out = append(out, model.Team(t))
	}
	return out
}
