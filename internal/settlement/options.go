package settlement

import (
	"time"

	"github.com/okian/teamclash/internal/domain/dedupe"
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithInterval sets how often the background loop runs a pass.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithBatchSize caps how many events one pass picks up.
func WithBatchSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithTimeout bounds the store calls made for a single event.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithConcurrency sets how many events are settled at once.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithTeams sets the teams that take part in every event.
func WithTeams(teams []model.Team) Option {
	return func(s *Scheduler) {
		if len(teams) > 0 {
			s.teams = append([]model.Team(nil), teams...)
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGuard sets the in-flight guard shared with other passes.
func WithGuard(g dedupe.Deduper) Option {
	return func(s *Scheduler) {
		if g != nil {
			s.guard = g
		}
	}
}
