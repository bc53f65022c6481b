package service

import (
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/internal/domain/standings"
	"github.com/okian/teamclash/internal/domain/types"
	"github.com/okian/teamclash/internal/settlement"
)

func eventView(ev *model.Event) *types.EventView {
	return &types.EventView{
		ID:      ev.ID,
		Name:    ev.Name,
		StartAt: ev.StartAt,
		EndAt:   ev.EndAt,
	}
}

func statsView(st standings.Standings) *types.StatsView {
	out := &types.StatsView{
		Totals:   make(map[string]int64, len(st.Teams)),
		Total:    st.GrandTotal,
		Percents: make(map[string]float64, len(st.Teams)),
	}
	for _, ts := range st.Teams {
		out.Totals[string(ts.Team)] = ts.Total
		out.Percents[string(ts.Team)] = ts.Percent
	}
	return out
}

// winnerView is nil until the event has an outcome.
func winnerView(w model.Winner) *string {
	if w == model.WinnerNone {
		return nil
	}
	name := string(w)
	return &name
}

func adminHints(list []model.Hint) []types.AdminHintView {
	out := make([]types.AdminHintView, 0, len(list))
	for _, h := range list {
		out = append(out, types.AdminHintView{Threshold: h.Threshold, Title: h.Title, Content: h.Content})
	}
	return out
}

func eventRecord(ev *model.Event) types.EventRecord {
	return types.EventRecord{
		ID:            ev.ID,
		Name:          ev.Name,
		StartAt:       ev.StartAt,
		EndAt:         ev.EndAt,
		Hints:         adminHints(ev.Hints),
		RewardAmount:  ev.RewardAmount,
		Winner:        winnerView(ev.Winner),
		SettledAt:     ev.SettledAt,
		RewardedUsers: ev.RewardedUsers,
		CreatedAt:     ev.CreatedAt,
	}
}

func userView(u model.User) types.UserView {
	return types.UserView{
		ID:              u.ID,
		Team:            string(u.Team),
		CurrencyBalance: u.CurrencyBalance,
		Score:           u.Score,
		CreatedAt:       u.CreatedAt,
	}
}

func settlementReport(r settlement.Report) types.SettlementReport {
	out := types.SettlementReport{
		Candidates: r.Candidates,
		Settled:    r.Settled,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		Results:    make([]types.SettlementResult, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		item := types.SettlementResult{
			EventID:       res.EventID,
			Status:        res.Status,
			Winner:        string(res.Winner),
			RewardedUsers: res.RewardedUsers,
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		out.Results = append(out.Results, item)
	}
	return out
}
