// Package standings aggregates team currency totals and decides winners.
package standings

import (
	"math"

	"github.com/okian/teamclash/internal/domain/model"
)

// TeamStanding is one team's line in the standings.
type TeamStanding struct {
	Team    model.Team
	Total   int64
	Percent float64
}

// Standings is the aggregate for every configured team, in configured order.
type Standings struct {
	Teams      []TeamStanding
	GrandTotal int64
}

// Compute builds standings for teams from per-team sums. Teams missing from
// sums count as zero; sums for unconfigured teams are ignored.
func Compute(teams []model.Team, sums map[model.Team]int64) Standings {
	s := Standings{Teams: make([]TeamStanding, 0, len(teams))}
	for _, t := range teams {
		total := sums[t]
		s.Teams = append(s.Teams, TeamStanding{Team: t, Total: total})
		s.GrandTotal += total
	}
	for i := range s.Teams {
		s.Teams[i].Percent = Percent(s.Teams[i].Total, s.GrandTotal)
	}
	return s
}

// Percent returns total/grand as a percentage rounded half away from zero to
// one decimal place, or 0 when grand is 0.
func Percent(total, grand int64) float64 {
	if grand == 0 {
		return 0
	}
	return math.Round(float64(total)*1000/float64(grand)) / 10
}

// Total returns the total for team, or 0 and false if it is not configured.
func (s Standings) Total(team model.Team) (int64, bool) {
	for _, ts := range s.Teams {
		if ts.Team == team {
			return ts.Total, true
		}
	}
	return 0, false
}

// Totals returns the per-team totals as a map.
func (s Standings) Totals() map[model.Team]int64 {
	out := make(map[model.Team]int64, len(s.Teams))
	for _, ts := range s.Teams {
		out[ts.Team] = ts.Total
	}
	return out
}

// Percents returns the per-team percentages as a map.
func (s Standings) Percents() map[model.Team]float64 {
	out := make(map[model.Team]float64, len(s.Teams))
	for _, ts := range s.Teams {
		out[ts.Team] = ts.Percent
	}
	return out
}

// Snapshot freezes the standings.
func (s Standings) Snapshot() model.Snapshot {
	return model.Snapshot{
		Totals:     s.Totals(),
		GrandTotal: s.GrandTotal,
		Percents:   s.Percents(),
	}
}

// FromSnapshot rebuilds standings from a frozen snapshot, keeping teams in
// configured order. Teams absent from the snapshot count as zero.
func FromSnapshot(teams []model.Team, snap model.Snapshot) Standings {
	s := Standings{Teams: make([]TeamStanding, 0, len(teams)), GrandTotal: snap.GrandTotal}
	for _, t := range teams {
		s.Teams = append(s.Teams, TeamStanding{Team: t, Total: snap.Totals[t], Percent: snap.Percents[t]})
	}
	return s
}

// DecideWinner returns the team with the strictly highest total. Ties for the
// highest total, including all-zero standings, are a draw. Raw totals decide;
// rounded percentages never do.
func DecideWinner(s Standings) model.Winner {
	if len(s.Teams) == 0 {
		return model.WinnerDraw
	}
	best := s.Teams[0]
	tied := false
	for _, ts := range s.Teams[1:] {
		switch {
		case ts.Total > best.Total:
			best = ts
			tied = false
		case ts.Total == best.Total:
			tied = true
		}
	}
	if tied {
		return model.WinnerDraw
	}
	return model.Winner(best.Team)
}
