package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/teamclash/internal/domain/types"
)

const winnerDraw = "draw"

// expectedWinner picks the team with the strictly highest total. A tie at the top is a draw.
func expectedWinner(totals map[string]int64) string {
	var (
		best   int64 = -1
		winner string
		tied   bool
	)
	for team, total := range totals {
		switch {
		case total > best:
			best, winner, tied = total, team, false
		case total == best:
			tied = true
		}
	}
	if tied || winner == "" {
		return winnerDraw
	}
	return winner
}

// verifyStudentView checks hint redaction against the view's own totals.
func verifyStudentView(view types.StatusView, team string, known bool) error {
	if view.Stats == nil {
		return errors.New("status view has no stats")
	}
	if known && view.CallerTeam != team {
		return fmt.Errorf("caller team %q, want %q", view.CallerTeam, team)
	}
	if !known && view.CallerTeam != "" {
		return fmt.Errorf("unknown team resolved to %q", view.CallerTeam)
	}
	total := view.Stats.Totals[team]
	for _, h := range view.Hints {
		want := known && total >= h.Threshold
		if h.Unlocked != want {
			return fmt.Errorf("team %q hint %q at %d: unlocked=%t with total %d", team, h.Title, h.Threshold, h.Unlocked, total)
		}
		if !h.Unlocked && h.Content != "" {
			return fmt.Errorf("team %q sees content of locked hint %q", team, h.Title)
		}
	}
	return nil
}

// verifySettlement checks the frozen snapshot and winner of a settled event.
func verifySettlement(view types.AdminStatusView, expected types.StatsView) error {
	if !view.Final || view.SettledAt == nil {
		return errors.New("event is not settled")
	}
	if view.FinalSnapshot == nil {
		return errors.New("settled event has no snapshot")
	}
	if view.FinalSnapshot.Total != expected.Total {
		return fmt.Errorf("snapshot total %d, want %d", view.FinalSnapshot.Total, expected.Total)
	}
	for team, want := range expected.Totals {
		if got := view.FinalSnapshot.Totals[team]; got != want {
			return fmt.Errorf("snapshot total for %q is %d, want %d", team, got, want)
		}
	}
	if got, want := types.WinnerName(view.Winner), expectedWinner(expected.Totals); got != want {
		return fmt.Errorf("winner %q, want %q", got, want)
	}
	return nil
}

// verifyPayouts checks that exactly the winning team's new users were paid once.
func verifyPayouts(users []types.UserView, winner string, reward int64) error {
	for _, u := range users {
		var want int64
		if u.Team == winner {
			want = reward
		}
		if u.Score != want {
			return fmt.Errorf("user %s on %q has score %d, want %d", u.ID, u.Team, u.Score, want)
		}
	}
	return nil
}
