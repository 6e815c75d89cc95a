package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"campaign-alerts/internal/aggregate"
)

const (
	balanceWarningDays  = 7.0
	balanceCriticalDays = 3.0
)

// DefaultAvgCPC is the static CPC reference used when no historical baseline is wired.
const DefaultAvgCPC = 2.50

// CPCBaseline returns the reference average CPC for a campaign. A non-positive
// value disables the CPC spike rule for that campaign.
type CPCBaseline func(c aggregate.CampaignRollup) float64

// StaticCPC returns a baseline that ignores the campaign.
func StaticCPC(avg float64) CPCBaseline {
	return func(aggregate.CampaignRollup) float64 { return avg }
}

// Options parameterise the rule engine.
type Options struct {
	Defaults    Thresholds
	CPCBaseline CPCBaseline
}

// Input is one evaluation request.
type Input struct {
	Campaigns []aggregate.CampaignRollup
	// Previous holds the comparison-window rollups; nil when no comparison is available.
	Previous map[aggregate.CampaignKey]aggregate.CampaignRollup
	Accounts []aggregate.AccountRollup
	// Configs are keyed by hotel name, matched case-insensitively against the rollup client.
	Configs map[string]HotelConfig
	Now     time.Time
}

// Engine evaluates the alert rules. It holds no per-request state.
type Engine struct {
	defaults    Thresholds
	cpcBaseline CPCBaseline
}

// NewEngine constructs a rule engine, filling unset options with defaults.
func NewEngine(opts Options) *Engine {
	if opts.Defaults == (Thresholds{}) {
		opts.Defaults = DefaultThresholds
	}
	if opts.CPCBaseline == nil {
		opts.CPCBaseline = StaticCPC(DefaultAvgCPC)
	}
	return &Engine{defaults: opts.Defaults, cpcBaseline: opts.CPCBaseline}
}

// Thresholds resolves the limits for a hotel.
func (e *Engine) Thresholds(configs map[string]HotelConfig, client string) Thresholds {
	if cfg, ok := lookupConfig(configs, client); ok {
		return cfg.Resolve(e.defaults)
	}
	return e.defaults
}

// Evaluate runs every campaign rule against every campaign, in order, followed
// by the account balance projection.
func (e *Engine) Evaluate(in Input) []Alert {
	resolved := make(map[string]Thresholds)
	var out []Alert

	for _, c := range in.Campaigns {
		th, ok := resolved[c.Client]
		if !ok {
			th = e.Thresholds(in.Configs, c.Client)
			resolved[c.Client] = th
		}

		ri := ruleInput{
			campaign:   c,
			thresholds: th,
			avgCPC:     e.cpcBaseline(c),
			now:        in.Now,
		}
		if prev, ok := in.Previous[c.Key()]; ok {
			ri.previous = &prev
		}

		for _, r := range campaignRules {
			if alert, fired := r.eval(ri); fired {
				out = append(out, alert)
			}
		}
	}

	for _, a := range in.Accounts {
		if alert, fired := accountBalance(a, in.Now); fired {
			out = append(out, alert)
		}
	}
	return out
}

// Projection is the account balance forecast.
type Projection struct {
	Balance       decimal.Decimal
	AvgDailySpend decimal.Decimal
	DaysRemaining decimal.Decimal
}

// ProjectBalance converts the spend cap and amount spent from minor units and
// projects how many days the balance lasts at the period's average daily spend.
// ok is false when the account has no cap or no spend.
func ProjectBalance(a aggregate.AccountRollup) (Projection, bool) {
	if a.SpendCap <= 0 || a.DaysInPeriod <= 0 {
		return Projection{}, false
	}
	p := Projection{
		Balance:       decimal.NewFromInt(a.SpendCap - a.AmountSpent).Div(decimal.NewFromInt(100)),
		AvgDailySpend: decimal.NewFromFloat(a.TotalPeriodSpend).Div(decimal.NewFromInt(int64(a.DaysInPeriod))),
	}
	if !p.AvgDailySpend.IsPositive() {
		return Projection{}, false
	}
	p.DaysRemaining = p.Balance.Div(p.AvgDailySpend)
	return p, true
}

func accountBalance(a aggregate.AccountRollup, now time.Time) (Alert, bool) {
	p, ok := ProjectBalance(a)
	if !ok {
		return Alert{}, false
	}
	days := p.DaysRemaining.InexactFloat64()
	if days > balanceWarningDays {
		return Alert{}, false
	}
	sev := SeverityWarning
	if days <= balanceCriticalDays {
		sev = SeverityCritical
	}
	return Alert{
		ID:           accountAlertID(a.AccountID),
		Type:         TypeAccountBalance,
		Severity:     sev,
		CampaignName: displayName(a.AccountName, a.AccountID),
		AccountID:    a.AccountID,
		Client:       a.Client,
		Platform:     a.Platform,
		Message: fmt.Sprintf("Account balance %s lasts about %s days at %s per day",
			p.Balance.StringFixed(2), p.DaysRemaining.StringFixed(1), p.AvgDailySpend.StringFixed(2)),
		Metrics: map[string]float64{
			"balance":         p.Balance.InexactFloat64(),
			"avg_daily_spend": p.AvgDailySpend.InexactFloat64(),
			"days_remaining":  days,
			"spend_cap":       float64(a.SpendCap) / 100,
			"amount_spent":    float64(a.AmountSpent) / 100,
		},
		Actions:   Actions(TypeAccountBalance),
		CreatedAt: now,
	}, true
}

func lookupConfig(configs map[string]HotelConfig, client string) (HotelConfig, bool) {
	if len(configs) == 0 {
		return HotelConfig{}, false
	}
	if cfg, ok := configs[client]; ok {
		return cfg, true
	}
	for name, cfg := range configs {
		if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(client)) {
			return cfg, true
		}
	}
	return HotelConfig{}, false
}
