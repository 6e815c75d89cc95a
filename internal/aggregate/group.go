package aggregate

import (
	"sort"
	"strings"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/period"
)

// Unspecified labels rows whose grouping dimension is blank.
const Unspecified = "UNSPECIFIED"

// KeyFunc extracts the grouping dimension of a row.
type KeyFunc func(ads.Row) string

// GroupRollup is a rollup over an arbitrary dimension.
type GroupRollup struct {
	Key string `json:"key"`
	Counters
	Derived
	Campaigns int `json:"campaigns"`
}

// Group runs the same single pass as Campaigns over a different key and
// returns groups ordered by spend, largest first.
func Group(rows []ads.Row, key KeyFunc) []GroupRollup {
	type state struct {
		rollup    GroupRollup
		campaigns map[CampaignKey]struct{}
	}

	groups := make(map[string]*state)
	for _, row := range rows {
		k := strings.TrimSpace(key(row))
		if k == "" {
			k = Unspecified
		}
		st, ok := groups[k]
		if !ok {
			st = &state{rollup: GroupRollup{Key: k}, campaigns: make(map[CampaignKey]struct{})}
			groups[k] = st
		}
		st.rollup.Counters.add(row)
		st.campaigns[CampaignKey{CampaignID: row.CampaignID, Platform: ads.ParsePlatform(string(row.Platform))}] = struct{}{}
	}

	out := make([]GroupRollup, 0, len(groups))
	for _, st := range groups {
		st.rollup.Derived = st.rollup.Counters.Derive()
		st.rollup.Campaigns = len(st.campaigns)
		out = append(out, st.rollup)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spend != out[j].Spend {
			return out[i].Spend > out[j].Spend
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ByObjective groups rows by campaign objective.
func ByObjective(rows []ads.Row) []GroupRollup {
	return Group(rows, func(r ads.Row) string { return strings.ToUpper(r.Objective) })
}

// ByBiddingStrategy groups rows by bidding strategy.
func ByBiddingStrategy(rows []ads.Row) []GroupRollup {
	return Group(rows, func(r ads.Row) string { return strings.ToUpper(r.BiddingStrategy) })
}

// ByDate groups rows per calendar day, oldest first.
func ByDate(rows []ads.Row) []GroupRollup {
	out := Group(rows, func(r ads.Row) string { return period.Day(r.Date).Format(period.Layout) })
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Summary totals a set of campaign rollups.
type Summary struct {
	Counters
	Derived
	Campaigns int `json:"campaigns"`
}

// Totals sums every campaign rollup.
func Totals(campaigns []CampaignRollup) Summary {
	var s Summary
	for _, c := range campaigns {
		s.Counters.merge(c.Counters)
		s.Campaigns++
	}
	s.Derived = s.Counters.Derive()
	return s
}

// ByPlatform sums campaign rollups per platform.
func ByPlatform(campaigns []CampaignRollup) map[ads.Platform]Summary {
	grouped := make(map[ads.Platform][]CampaignRollup)
	for _, c := range campaigns {
		grouped[c.Platform] = append(grouped[c.Platform], c)
	}
	out := make(map[ads.Platform]Summary, len(grouped))
	for p, cs := range grouped {
		out[p] = Totals(cs)
	}
	return out
}

// TopCampaigns returns up to n campaigns ranked by revenue, then spend.
func TopCampaigns(campaigns []CampaignRollup, n int) []CampaignRollup {
	ranked := make([]CampaignRollup, len(campaigns))
	copy(ranked, campaigns)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		if ranked[i].Spend != ranked[j].Spend {
			return ranked[i].Spend > ranked[j].Spend
		}
		return ranked[i].Key().String() < ranked[j].Key().String()
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
