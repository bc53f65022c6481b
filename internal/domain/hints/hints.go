// Package hints decides which event hints a team may see.
package hints

import (
	"sort"

	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/internal/domain/standings"
)

// View is a hint as seen by one team.
type View struct {
	Threshold int64
	Title     string
	Unlocked  bool
	Content   string
}

// Resolve evaluates every hint against a team total. A hint is unlocked only
// for a known team whose total reached the threshold. Locked hints carry an
// empty Content. Order is preserved and each hint is evaluated on its own.
func Resolve(list []model.Hint, teamTotal int64, known bool) []View {
	out := make([]View, 0, len(list))
	for _, h := range list {
		v := View{Threshold: h.Threshold, Title: h.Title}
		if known && teamTotal >= h.Threshold {
			v.Unlocked = true
			v.Content = h.Content
		}
		out = append(out, v)
	}
	return out
}

// ForTeam resolves hints for team against the standings. Teams not present in
// the standings see every hint locked.
func ForTeam(list []model.Hint, s standings.Standings, team model.Team) []View {
	total, known := s.Total(team)
	return Resolve(list, total, known)
}

// UnlockedThresholds returns, per team, the distinct thresholds it has
// reached in ascending order.
func UnlockedThresholds(list []model.Hint, s standings.Standings) map[model.Team][]int64 {
	out := make(map[model.Team][]int64, len(s.Teams))
	for _, ts := range s.Teams {
		seen := make(map[int64]struct{})
		reached := []int64{}
		for _, h := range list {
			if ts.Total < h.Threshold {
				continue
			}
			if _, dup := seen[h.Threshold]; dup {
				continue
			}
			seen[h.Threshold] = struct{}{}
			reached = append(reached, h.Threshold)
		}
		sort.Slice(reached, func(i, j int) bool { return reached[i] < reached[j] })
		out[ts.Team] = reached
	}
	return out
}
