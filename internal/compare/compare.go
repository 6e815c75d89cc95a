package compare

import (
	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/aggregate"
	"campaign-alerts/internal/calc"
	"campaign-alerts/internal/period"
)

// Metrics is the set of figures compared across periods.
type Metrics struct {
	Investment  float64 `json:"investment"`
	Revenue     float64 `json:"revenue"`
	Conversions float64 `json:"conversions"`
	ROAS        float64 `json:"roas"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
	CPA         float64 `json:"cpa"`
}

// FromCounters projects counters and ratios into comparable metrics.
func FromCounters(c aggregate.Counters, d aggregate.Derived) Metrics {
	return Metrics{
		Investment:  c.Spend,
		Revenue:     c.Revenue,
		Conversions: c.Conversions,
		ROAS:        d.ROAS,
		Clicks:      float64(c.Clicks),
		Impressions: float64(c.Impressions),
		CTR:         d.CTR,
		CPC:         d.CPC,
		CPA:         d.CPA,
	}
}

// Delta computes the percentage change of every metric.
func Delta(current, previous Metrics) Metrics {
	return Metrics{
		Investment:  calc.PercentDelta(current.Investment, previous.Investment),
		Revenue:     calc.PercentDelta(current.Revenue, previous.Revenue),
		Conversions: calc.PercentDelta(current.Conversions, previous.Conversions),
		ROAS:        calc.PercentDelta(current.ROAS, previous.ROAS),
		Clicks:      calc.PercentDelta(current.Clicks, previous.Clicks),
		Impressions: calc.PercentDelta(current.Impressions, previous.Impressions),
		CTR:         calc.PercentDelta(current.CTR, previous.CTR),
		CPC:         calc.PercentDelta(current.CPC, previous.CPC),
		CPA:         calc.PercentDelta(current.CPA, previous.CPA),
	}
}

// Pair holds both sides of a comparison and their variation.
type Pair struct {
	Current   Metrics `json:"current"`
	Previous  Metrics `json:"previous"`
	Variation Metrics `json:"variation"`
}

func pairOf(current, previous aggregate.Summary) Pair {
	cur := FromCounters(current.Counters, current.Derived)
	prev := FromCounters(previous.Counters, previous.Derived)
	return Pair{Current: cur, Previous: prev, Variation: Delta(cur, prev)}
}

// CampaignComparison compares one campaign with the same campaign in the prior window.
type CampaignComparison struct {
	CampaignID  string       `json:"campaign_id"`
	Platform    ads.Platform `json:"platform"`
	HasPrevious bool         `json:"has_previous"`
	Pair
}

// Comparison is the full comparison of two windows.
type Comparison struct {
	Window       period.Range                                 `json:"-"`
	Against      period.Range                                 `json:"-"`
	YearOverYear bool                                         `json:"year_over_year"`
	Overall      Pair                                         `json:"overall"`
	Platforms    map[ads.Platform]Pair                        `json:"platforms"`
	Campaigns    map[aggregate.CampaignKey]CampaignComparison `json:"-"`
}

// Compare computes overall, per-platform and per-campaign variations. A
// campaign without a previous rollup gets a zero variation rather than the
// growth-from-zero figure.
func Compare(window period.Range, yearOverYear bool, current, previous []aggregate.CampaignRollup) Comparison {
	out := Comparison{
		Window:       window,
		Against:      window.Comparison(yearOverYear),
		YearOverYear: yearOverYear,
		Overall:      pairOf(aggregate.Totals(current), aggregate.Totals(previous)),
		Platforms:    make(map[ads.Platform]Pair),
		Campaigns:    make(map[aggregate.CampaignKey]CampaignComparison, len(current)),
	}

	curPlatforms := aggregate.ByPlatform(current)
	prevPlatforms := aggregate.ByPlatform(previous)
	for _, p := range []ads.Platform{ads.GoogleAds, ads.MetaAds} {
		cur, okCur := curPlatforms[p]
		prev, okPrev := prevPlatforms[p]
		if !okCur && !okPrev {
			continue
		}
		out.Platforms[p] = pairOf(cur, prev)
	}

	prevIdx := aggregate.Index(previous)
	for _, c := range current {
		cmp := CampaignComparison{
			CampaignID: c.CampaignID,
			Platform:   c.Platform,
			Pair:       Pair{Current: FromCounters(c.Counters, c.Derived)},
		}
		if p, ok := prevIdx[c.Key()]; ok {
			cmp.HasPrevious = true
			cmp.Previous = FromCounters(p.Counters, p.Derived)
			cmp.Variation = Delta(cmp.Current, cmp.Previous)
		}
		out.Campaigns[c.Key()] = cmp
	}

	return out
}

// Campaign returns the comparison for a campaign, if present.
func (c Comparison) Campaign(key aggregate.CampaignKey) (CampaignComparison, bool) {
	cmp, ok := c.Campaigns[key]
	return cmp, ok
}

// CampaignList flattens per-campaign comparisons in the order of rollups.
func (c Comparison) CampaignList(order []aggregate.CampaignRollup) []CampaignComparison {
	out := make([]CampaignComparison, 0, len(order))
	for _, r := range order {
		if cmp, ok := c.Campaigns[r.Key()]; ok {
			out = append(out, cmp)
		}
	}
	return out
}
