package repository

import (
	"time"

	"gorm.io/gorm/logger"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithClock sets the time source used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// GormOption applies a configuration option to the GormStore.
type GormOption func(*GormStore)

// WithGormClock sets the time source used for creation timestamps.
func WithGormClock(now func() time.Time) GormOption {
	return func(s *GormStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAutoMigrate controls whether the schema is migrated on open.
func WithAutoMigrate(enabled bool) GormOption {
	return func(s *GormStore) {
		s.autoMigrate = enabled
	}
}

// WithGormLogLevel sets the gorm statement logger level.
func WithGormLogLevel(level logger.LogLevel) GormOption {
	return func(s *GormStore) {
		s.logLevel = level
	}
}
