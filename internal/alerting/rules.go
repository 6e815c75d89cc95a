package alerting

import (
	"fmt"
	"strings"
	"time"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/aggregate"
	"campaign-alerts/internal/calc"
	"campaign-alerts/internal/period"
)

const (
	lowBudgetUsageMin    = 70.0
	exhaustedUsageMin    = 95.0
	lowBudgetHourCutoff  = 14
	exhaustedHourCutoff  = 18
	endingSoonMaxDays    = 3
	impressionDropPct    = -50.0
	cpcSpikeFactor       = 1.3
	cpcSpikeMinClicks    = 10
	pausedROASMin        = 3.0
	scaleROASMin         = 4.0
	scaleUsageMax        = 50.0
	impressionShareLimit = 30.0
)

// ruleInput is everything a campaign rule may read. Rules never mutate it.
type ruleInput struct {
	campaign   aggregate.CampaignRollup
	previous   *aggregate.CampaignRollup
	thresholds Thresholds
	avgCPC     float64
	now        time.Time
}

type rule struct {
	kind Type
	eval func(in ruleInput) (Alert, bool)
}

// campaignRules lists the campaign rules in evaluation order. The order only
// fixes the output ordering; rules do not depend on each other.
var campaignRules = []rule{
	{TypeLowPerformance, lowPerformance},
	{TypeLowBudget, lowBudget},
	{TypeNoSpend, noSpend},
	{TypeEndingSoon, endingSoon},
	{TypeBudgetExhausted, budgetExhausted},
	{TypeImpressionDrop, impressionDrop},
	{TypeCPCSpike, cpcSpike},
	{TypePausedWithPotential, pausedWithPotential},
	{TypeScaleOpportunity, scaleOpportunity},
	{TypeImpressionShareLost, impressionShareLost},
}

var ruleActions = map[Type][]string{
	TypeLowPerformance: {
		"Review keywords and audiences with the worst return",
		"Check landing page and booking engine conversion tracking",
		"Reallocate budget to better performing campaigns",
	},
	TypeLowBudget: {
		"Check whether the daily budget is enough for the rest of the day",
		"Consider raising the daily budget",
		"Review bid adjustments by time of day",
	},
	TypeNoSpend: {
		"Check payment method and account status",
		"Review ad approval and policy issues",
		"Check targeting and bids for delivery restrictions",
	},
	TypeEndingSoon: {
		"Decide whether the campaign should be extended",
		"Prepare the follow-up campaign",
	},
	TypeBudgetExhausted: {
		"Raise the daily budget if performance allows",
		"Lower bids to spread delivery across the day",
	},
	TypeImpressionDrop: {
		"Check for paused ads, ad groups or policy disapprovals",
		"Review bid and budget changes against the previous period",
		"Check auction competitiveness",
	},
	TypeCPCSpike: {
		"Review auction insights for new competitors",
		"Check quality score and ad relevance",
		"Adjust bids or bidding strategy",
	},
	TypePausedWithPotential: {
		"Consider reactivating the campaign",
		"Review why the campaign was paused",
	},
	TypeScaleOpportunity: {
		"Increase the daily budget gradually",
		"Expand audiences or keywords",
	},
	TypeImpressionShareLost: {
		"Increase the daily budget to recover lost impression share",
		"Prioritise the best performing keywords",
	},
	TypeAccountBalance: {
		"Add funds or raise the account spending limit",
		"Notify the client about the remaining balance",
	},
}

// Actions returns the static recommendations attached to alerts of type t.
func Actions(t Type) []string {
	src := ruleActions[t]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

func newCampaignAlert(t Type, sev Severity, c aggregate.CampaignRollup, now time.Time, msg string, metrics map[string]float64) Alert {
	return Alert{
		ID:           campaignAlertID(t, c.CampaignID, c.Platform),
		Type:         t,
		Severity:     sev,
		CampaignID:   c.CampaignID,
		CampaignName: displayName(c.CampaignName, c.CampaignID),
		AccountID:    c.AccountID,
		Client:       c.Client,
		Platform:     c.Platform,
		Message:      msg,
		Metrics:      metrics,
		Actions:      Actions(t),
		CreatedAt:    now,
	}
}

func displayName(name, id string) string {
	if strings.TrimSpace(name) == "" {
		return id
	}
	return name
}

// usage is spend as a percentage of the daily budget.
func usage(spend, dailyBudget float64) (float64, bool) {
	if dailyBudget <= 0 {
		return 0, false
	}
	return spend / dailyBudget * 100, true
}

func lowPerformance(in ruleInput) (Alert, bool) {
	c, th := in.campaign, in.thresholds
	if c.Spend <= 0 {
		return Alert{}, false
	}
	var reasons []string
	if c.ROAS < th.ROASMin {
		reasons = append(reasons, fmt.Sprintf("ROAS %.2f below %.2f", c.ROAS, th.ROASMin))
	}
	if c.CPA > th.CPAMax {
		reasons = append(reasons, fmt.Sprintf("CPA %.2f above %.2f", c.CPA, th.CPAMax))
	}
	if c.CTR < th.CTRMin {
		reasons = append(reasons, fmt.Sprintf("CTR %.2f%% below %.2f%%", c.CTR, th.CTRMin))
	}
	if len(reasons) == 0 {
		return Alert{}, false
	}
	return newCampaignAlert(TypeLowPerformance, SeverityCritical, c, in.now,
		"Low performance: "+strings.Join(reasons, "; "),
		map[string]float64{
			"spend":    c.Spend,
			"roas":     c.ROAS,
			"cpa":      c.CPA,
			"ctr":      c.CTR,
			"roas_min": th.ROASMin,
			"cpa_max":  th.CPAMax,
			"ctr_min":  th.CTRMin,
		}), true
}

func lowBudget(in ruleInput) (Alert, bool) {
	c := in.campaign
	pct, ok := usage(c.LatestDaySpend, c.DailyBudget)
	if !ok || pct < lowBudgetUsageMin || pct >= exhaustedUsageMin || in.now.Hour() >= lowBudgetHourCutoff {
		return Alert{}, false
	}
	return newCampaignAlert(TypeLowBudget, SeverityWarning, c, in.now,
		fmt.Sprintf("Accelerated pacing: %.0f%% of the daily budget used before %02d:00", pct, lowBudgetHourCutoff),
		map[string]float64{
			"daily_budget":     c.DailyBudget,
			"latest_day_spend": c.LatestDaySpend,
			"usage_pct":        pct,
			"hour":             float64(in.now.Hour()),
		}), true
}

func noSpend(in ruleInput) (Alert, bool) {
	c := in.campaign
	if !ads.IsActiveStatus(c.Status) || c.Spend != 0 || c.DaysObserved < 2 {
		return Alert{}, false
	}
	return newCampaignAlert(TypeNoSpend, SeverityCritical, c, in.now,
		fmt.Sprintf("Active campaign with no spend over %d days", c.DaysObserved),
		map[string]float64{
			"spend":         c.Spend,
			"days_observed": float64(c.DaysObserved),
			"impressions":   float64(c.Impressions),
		}), true
}

func endingSoon(in ruleInput) (Alert, bool) {
	c := in.campaign
	if c.EndDate == nil {
		return Alert{}, false
	}
	days := period.DaysBetween(in.now, *c.EndDate)
	if days < 0 || days > endingSoonMaxDays {
		return Alert{}, false
	}
	msg := fmt.Sprintf("Campaign ends in %d days", days)
	if days == 0 {
		msg = "Campaign ends today"
	}
	return newCampaignAlert(TypeEndingSoon, SeverityWarning, c, in.now, msg,
		map[string]float64{"days_remaining": float64(days)}), true
}

func budgetExhausted(in ruleInput) (Alert, bool) {
	c := in.campaign
	pct, ok := usage(c.LatestDaySpend, c.DailyBudget)
	if !ok || pct < exhaustedUsageMin || in.now.Hour() >= exhaustedHourCutoff {
		return Alert{}, false
	}
	return newCampaignAlert(TypeBudgetExhausted, SeverityWarning, c, in.now,
		fmt.Sprintf("Daily budget %.0f%% used before %02d:00", pct, exhaustedHourCutoff),
		map[string]float64{
			"daily_budget":     c.DailyBudget,
			"latest_day_spend": c.LatestDaySpend,
			"usage_pct":        pct,
			"hour":             float64(in.now.Hour()),
		}), true
}

func impressionDrop(in ruleInput) (Alert, bool) {
	c := in.campaign
	if in.previous == nil || c.Impressions <= 0 {
		return Alert{}, false
	}
	prev := float64(in.previous.Impressions)
	delta := calc.PercentDelta(float64(c.Impressions), prev)
	if delta >= impressionDropPct {
		return Alert{}, false
	}
	return newCampaignAlert(TypeImpressionDrop, SeverityCritical, c, in.now,
		fmt.Sprintf("Impressions dropped %.1f%% against the previous period", -delta),
		map[string]float64{
			"impressions":          float64(c.Impressions),
			"previous_impressions": prev,
			"variation_pct":        delta,
		}), true
}

func cpcSpike(in ruleInput) (Alert, bool) {
	c := in.campaign
	if in.avgCPC <= 0 || c.Clicks <= cpcSpikeMinClicks {
		return Alert{}, false
	}
	current := calc.CPC(c.Spend, float64(c.Clicks))
	if current <= in.avgCPC*cpcSpikeFactor {
		return Alert{}, false
	}
	return newCampaignAlert(TypeCPCSpike, SeverityWarning, c, in.now,
		fmt.Sprintf("CPC %.2f is %.0f%% above the reference %.2f", current, calc.PercentDelta(current, in.avgCPC), in.avgCPC),
		map[string]float64{
			"cpc":     current,
			"avg_cpc": in.avgCPC,
			"clicks":  float64(c.Clicks),
		}), true
}

func pausedWithPotential(in ruleInput) (Alert, bool) {
	c := in.campaign
	if !ads.IsPausedStatus(c.Status) || c.ROAS <= pausedROASMin || c.Spend <= 0 {
		return Alert{}, false
	}
	return newCampaignAlert(TypePausedWithPotential, SeverityInfo, c, in.now,
		fmt.Sprintf("Paused campaign had ROAS %.2f", c.ROAS),
		map[string]float64{
			"roas":    c.ROAS,
			"spend":   c.Spend,
			"revenue": c.Revenue,
		}), true
}

func scaleOpportunity(in ruleInput) (Alert, bool) {
	c := in.campaign
	pct, ok := usage(c.Spend, c.DailyBudget)
	if !ok || c.ROAS <= scaleROASMin || pct >= scaleUsageMax || c.Spend <= 0 {
		return Alert{}, false
	}
	return newCampaignAlert(TypeScaleOpportunity, SeverityInfo, c, in.now,
		fmt.Sprintf("ROAS %.2f with only %.0f%% of the daily budget used", c.ROAS, pct),
		map[string]float64{
			"roas":         c.ROAS,
			"daily_budget": c.DailyBudget,
			"spend":        c.Spend,
			"usage_pct":    pct,
		}), true
}

func impressionShareLost(in ruleInput) (Alert, bool) {
	c := in.campaign
	if c.SearchBudgetLostIS <= impressionShareLimit {
		return Alert{}, false
	}
	return newCampaignAlert(TypeImpressionShareLost, SeverityWarning, c, in.now,
		fmt.Sprintf("%.1f%% of search impression share lost to budget", c.SearchBudgetLostIS),
		map[string]float64{"search_budget_lost_impression_share": c.SearchBudgetLostIS}), true
}
