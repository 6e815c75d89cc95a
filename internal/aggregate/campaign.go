package aggregate

import (
	"sort"
	"time"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/calc"
	"campaign-alerts/internal/period"
)

// Counters are the summed raw figures of a rollup.
type Counters struct {
	Spend       float64 `json:"spend"`
	Revenue     float64 `json:"revenue"`
	Conversions float64 `json:"conversions"`
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	Reach       int64   `json:"reach"`
}

func (c *Counters) add(row ads.Row) {
	c.Spend += nonNegative(row.Spend)
	c.Revenue += nonNegative(row.Revenue())
	c.Conversions += nonNegative(row.ConversionCount())
	c.Clicks += nonNegativeInt(row.Clicks)
	c.Impressions += nonNegativeInt(row.Impressions)
	c.Reach += nonNegativeInt(row.Reach)
}

func (c *Counters) merge(o Counters) {
	c.Spend += o.Spend
	c.Revenue += o.Revenue
	c.Conversions += o.Conversions
	c.Clicks += o.Clicks
	c.Impressions += o.Impressions
	c.Reach += o.Reach
}

// Derived holds the ratios computed from Counters.
type Derived struct {
	ROAS      float64 `json:"roas"`
	CPA       float64 `json:"cpa"`
	CPC       float64 `json:"cpc"`
	CTR       float64 `json:"ctr"`
	CPM       float64 `json:"cpm"`
	Frequency float64 `json:"frequency"`
}

// Derive computes every ratio with the calculator's zero-denominator policy.
func (c Counters) Derive() Derived {
	return Derived{
		ROAS:      calc.ROAS(c.Revenue, c.Spend),
		CPA:       calc.CPA(c.Spend, c.Conversions),
		CPC:       calc.CPC(c.Spend, float64(c.Clicks)),
		CTR:       calc.CTR(float64(c.Clicks), float64(c.Impressions)),
		CPM:       calc.CPM(c.Spend, float64(c.Impressions)),
		Frequency: calc.Frequency(float64(c.Impressions), float64(c.Reach)),
	}
}

// CampaignKey identifies a campaign on a platform.
type CampaignKey struct {
	CampaignID string
	Platform   ads.Platform
}

func (k CampaignKey) String() string {
	return k.CampaignID + "_" + string(k.Platform)
}

// CampaignRollup is the per-request summary of one campaign on one platform.
type CampaignRollup struct {
	CampaignID      string       `json:"campaign_id"`
	CampaignName    string       `json:"campaign_name"`
	Platform        ads.Platform `json:"platform"`
	AccountID       string       `json:"account_id"`
	AccountName     string       `json:"account_name"`
	Client          string       `json:"client"`
	Status          string       `json:"status"`
	Objective       string       `json:"objective"`
	BiddingStrategy string       `json:"bidding_strategy"`

	Counters
	Derived

	DailyBudget        float64    `json:"daily_budget"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	SpendCap           int64      `json:"account_spend_cap"`
	AmountSpent        int64      `json:"account_amount_spent"`
	SearchBudgetLostIS float64    `json:"search_budget_lost_impression_share"`

	LatestDate     time.Time `json:"latest_date"`
	LatestDaySpend float64   `json:"latest_day_spend"`
	DaysObserved   int       `json:"days_observed"`

	dates map[time.Time]struct{}
}

// Key returns the rollup's grouping key.
func (c CampaignRollup) Key() CampaignKey {
	return CampaignKey{CampaignID: c.CampaignID, Platform: c.Platform}
}

// applyState copies the descriptive attributes of the most recent row.
func (c *CampaignRollup) applyState(row ads.Row) {
	setIfPresent(&c.CampaignName, row.CampaignName)
	setIfPresent(&c.AccountName, row.AccountName)
	setIfPresent(&c.Status, row.Status)
	setIfPresent(&c.Objective, row.Objective)
	setIfPresent(&c.BiddingStrategy, row.BiddingStrategy)
	c.DailyBudget = nonNegative(row.DailyBudget)
	c.EndDate = row.EndDate
	c.SpendCap = row.SpendCap
	c.AmountSpent = row.AmountSpent
	if row.SearchBudgetLostIS != nil {
		c.SearchBudgetLostIS = *row.SearchBudgetLostIS
	}
}

// CampaignAccumulator folds rows into campaign rollups in a single pass.
type CampaignAccumulator struct {
	clients *ClientResolver
	rollups map[CampaignKey]*CampaignRollup
}

// Add folds one row into its campaign's rollup.
func (a *CampaignAccumulator) Add(row ads.Row) {
	platform := ads.ParsePlatform(string(row.Platform))
	key := CampaignKey{CampaignID: row.CampaignID, Platform: platform}

	r, seen := a.rollups[key]
	if !seen {
		r = &CampaignRollup{
			CampaignID: row.CampaignID,
			Platform:   platform,
			AccountID:  row.AccountID,
			Client:     a.clients.Resolve(row.AccountName, row.Client),
			dates:      make(map[time.Time]struct{}),
		}
		a.rollups[key] = r
	}

	r.Counters.add(row)

	day := period.Day(row.Date)
	r.dates[day] = struct{}{}
	spend := nonNegative(row.Spend)
	switch {
	case !seen || day.After(r.LatestDate):
		r.LatestDate = day
		r.LatestDaySpend = spend
		r.applyState(row)
	case day.Equal(r.LatestDate):
		r.LatestDaySpend += spend
		r.applyState(row)
	}
}

// Rollups finalises derived metrics and returns rollups ordered by campaign id then platform.
func (a *CampaignAccumulator) Rollups() []CampaignRollup {
	out := make([]CampaignRollup, 0, len(a.rollups))
	for _, r := range a.rollups {
		r.Derived = r.Counters.Derive()
		r.DaysObserved = len(r.dates)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CampaignID != out[j].CampaignID {
			return out[i].CampaignID < out[j].CampaignID
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

// Aggregator builds rollups from raw metric rows.
type Aggregator struct {
	clients *ClientResolver
}

// New constructs an Aggregator with the given client alias table.
func New(aliases ClientAliases) *Aggregator {
	return &Aggregator{clients: NewClientResolver(aliases)}
}

// NewCampaignAccumulator starts an empty single-pass accumulation.
func (a *Aggregator) NewCampaignAccumulator() *CampaignAccumulator {
	return &CampaignAccumulator{clients: a.clients, rollups: make(map[CampaignKey]*CampaignRollup)}
}

// Campaigns groups rows by (campaign_id, platform). Every call starts from zero.
func (a *Aggregator) Campaigns(rows []ads.Row) []CampaignRollup {
	acc := a.NewCampaignAccumulator()
	for _, row := range rows {
		acc.Add(row)
	}
	return acc.Rollups()
}

// Index keys rollups by campaign and platform.
func Index(rollups []CampaignRollup) map[CampaignKey]CampaignRollup {
	out := make(map[CampaignKey]CampaignRollup, len(rollups))
	for _, r := range rollups {
		out[r.Key()] = r
	}
	return out
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

func nonNegativeInt(i int64) int64 {
	if i < 0 {
		return 0
	}
	return i
}
