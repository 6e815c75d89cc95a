package aggregate

import (
	"sort"
	"time"

	"campaign-alerts/internal/ads"
)

// AccountRollup folds the campaigns sharing an ad account.
type AccountRollup struct {
	AccountID        string       `json:"account_id"`
	AccountName      string       `json:"account_name"`
	Client           string       `json:"client"`
	Platform         ads.Platform `json:"platform"`
	TotalPeriodSpend float64      `json:"total_period_spend"`
	DaysInPeriod     int          `json:"days_in_period"`
	SpendCap         int64        `json:"spend_cap"`
	AmountSpent      int64        `json:"amount_spent"`
	Campaigns        int          `json:"campaigns"`
}

// Accounts folds campaign rollups by account id. Days are counted as distinct
// dates observed across all of the account's campaigns.
func Accounts(campaigns []CampaignRollup) []AccountRollup {
	type state struct {
		rollup AccountRollup
		dates  map[time.Time]struct{}
		latest time.Time
	}

	byID := make(map[string]*state)
	for _, c := range campaigns {
		if c.AccountID == "" {
			continue
		}
		st, ok := byID[c.AccountID]
		if !ok {
			st = &state{
				rollup: AccountRollup{
					AccountID:   c.AccountID,
					AccountName: c.AccountName,
					Client:      c.Client,
					Platform:    c.Platform,
				},
				dates: make(map[time.Time]struct{}),
			}
			byID[c.AccountID] = st
		}
		st.rollup.TotalPeriodSpend += c.Spend
		st.rollup.Campaigns++
		for d := range c.dates {
			st.dates[d] = struct{}{}
		}
		// Spend cap and amount spent are account-level snapshots; keep the freshest.
		if !ok || c.LatestDate.After(st.latest) {
			st.latest = c.LatestDate
			st.rollup.SpendCap = c.SpendCap
			st.rollup.AmountSpent = c.AmountSpent
		}
	}

	out := make([]AccountRollup, 0, len(byID))
	for _, st := range byID {
		st.rollup.DaysInPeriod = len(st.dates)
		out = append(out, st.rollup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}
