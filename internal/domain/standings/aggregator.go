package standings

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/pkg/metrics"
)

// Summer reports the sum of currency balances per team.
type Summer interface {
	SumCurrencyByTeam(ctx context.Context) (map[model.Team]int64, error)
}

// Aggregator produces live standings from the ledger.
type Aggregator struct {
	ledger Summer
	teams  []model.Team
}

// NewAggregator returns an Aggregator over the given teams.
func NewAggregator(ledger Summer, teams []model.Team) *Aggregator {
	return &Aggregator{ledger: ledger, teams: append([]model.Team(nil), teams...)}
}

// Teams returns the configured teams in order.
func (a *Aggregator) Teams() []model.Team {
	return append([]model.Team(nil), a.teams...)
}

// Current reads the ledger once and computes standings.
func (a *Aggregator) Current(ctx context.Context) (Standings, error) {
	start := time.Now()
	sums, err := a.ledger.SumCurrencyByTeam(ctx)
	if err != nil {
		return Standings{}, fmt.Errorf("sum currency by team: %w", err)
	}
	s := Compute(a.teams, sums)
	metrics.RecordStandingsLatency(metrics.SinceMs(start))
	for _, ts := range s.Teams {
		metrics.UpdateTeamTotal(string(ts.Team), ts.Total)
	}
	return s, nil
}
