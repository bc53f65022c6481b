package simulate

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/teamclash/internal/domain/types"
)

// hintRequest mirrors the create-event hint body.
type hintRequest struct {
	Threshold int64  `json:"threshold"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// planUsers generates UsersPerTeam users per team with random balances.
func planUsers(teams []string, perTeam int, maxCurrency int64) ([]plannedUser, error) {
	out := make([]plannedUser, 0, len(teams)*perTeam)
	for _, team := range teams {
		for i := 0; i < perTeam; i++ {
			amount, err := randInt64(maxCurrency + 1)
			if err != nil {
				return nil, err
			}
			out = append(out, plannedUser{
				ID:       "sim-" + uuid.NewString(),
				Team:     team,
				Currency: amount,
			})
		}
	}
	return out, nil
}

// planHints places thresholds so that some teams unlock and others may not.
func planHints(stats types.StatsView) []hintRequest {
	var top int64
	for _, total := range stats.Totals {
		if total > top {
			top = total
		}
	}
	return []hintRequest{
		{Threshold: 0, Title: "Warm-up", Content: "everyone gets this one"},
		{Threshold: top / 2, Title: "Halfway", Content: "half of the leader's total"},
		{Threshold: top, Title: "Leader", Content: "only the leading team"},
		{Threshold: top + 1, Title: "Out of reach", Content: "nobody sees this"},
	}
}

// randInt64 returns a uniform value in [0, n).
func randInt64(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return v.Int64(), nil
}
