package ads

import (
	"strings"
	"time"

	"campaign-alerts/internal/calc"
	"campaign-alerts/internal/period"
)

// Platform identifies the ad network a row was reported by.
type Platform string

const (
	GoogleAds Platform = "Google Ads"
	MetaAds   Platform = "Meta Ads"
)

// ParsePlatform folds the short, long and snake-case labels used by the
// ingestion jobs into the two supported platforms.
func ParsePlatform(raw string) Platform {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("_", "", "-", "", " ", "").Replace(norm)
	switch {
	case strings.Contains(norm, "meta"), strings.Contains(norm, "facebook"), norm == "fb", strings.Contains(norm, "instagram"):
		return MetaAds
	default:
		return GoogleAds
	}
}

// Short returns a compact identifier suitable for keys and metric labels.
func (p Platform) Short() string {
	if p == MetaAds {
		return "meta"
	}
	return "google"
}

// Row is one observation of a campaign on one day on one platform.
type Row struct {
	Date         time.Time
	AccountID    string
	AccountName  string
	CampaignID   string
	CampaignName string
	Platform     Platform
	Client       string

	Spend       float64
	Impressions int64
	Clicks      int64
	Reach       int64

	// Platform specific sources, nil when the platform does not report them.
	Conversions      *float64 // Google conversions
	ConversionsValue *float64 // Google conversion value
	PurchaseCount    *float64 // Meta action_omni_purchase
	PurchaseValue    *float64 // Meta action_value_omni_purchase
	LeadsCount       *float64 // Meta action_leads

	Status          string
	Objective       string
	BiddingStrategy string
	ResultType      string
	DailyBudget     float64
	EndDate         *time.Time

	// Account level, minor currency units.
	SpendCap    int64
	AmountSpent int64

	// 0-100 scale, Google search campaigns only.
	SearchBudgetLostIS *float64
}

// Revenue folds Google conversion value and Meta purchase value into a single figure.
func (r Row) Revenue() float64 {
	return calc.Coalesce(r.ConversionsValue, r.PurchaseValue)
}

// ConversionCount folds Google conversions, Meta purchases and Meta leads,
// in that order of preference.
func (r Row) ConversionCount() float64 {
	return calc.Coalesce(r.Conversions, r.PurchaseCount, r.LeadsCount)
}

// IsActiveStatus reports whether a campaign status counts as running. Blank counts as running.
func IsActiveStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "", "ACTIVE", "ENABLED":
		return true
	default:
		return false
	}
}

// IsPausedStatus matches PAUSED and its variants such as CAMPAIGN_PAUSED.
func IsPausedStatus(status string) bool {
	return strings.Contains(strings.ToUpper(status), "PAUSED")
}

// Filters is the dashboard filter state handed to the engine.
type Filters struct {
	Hotels         []string `json:"selectedHotels"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
	Cities         []string `json:"selectedCidades"`
	States         []string `json:"selectedEstados"`
	CompareYearAgo bool     `json:"compareYearAgo"`
	Objectives     []string `json:"selectedObjectives"`
	ResultTypes    []string `json:"selectedResultTypes"`
}

// Range returns the requested window; ok is false when it is absent or invalid.
func (f Filters) Range() (period.Range, bool) {
	r, err := period.Parse(f.StartDate, f.EndDate)
	if err != nil {
		return period.Range{}, false
	}
	return r, true
}

// HasEntityFilter reports whether hotel, city or state filters are set.
func (f Filters) HasEntityFilter() bool {
	return len(f.Hotels) > 0 || len(f.Cities) > 0 || len(f.States) > 0
}

// Match applies the objective and result-type filters to a row.
func (f Filters) Match(row Row) bool {
	if len(f.Objectives) > 0 && !containsFold(f.Objectives, row.Objective) {
		return false
	}
	if len(f.ResultTypes) > 0 && !containsFold(f.ResultTypes, row.ResultType) {
		return false
	}
	return true
}

// Apply returns the rows matching f, reusing the input when no row filter is set.
func (f Filters) Apply(rows []Row) []Row {
	if len(f.Objectives) == 0 && len(f.ResultTypes) == 0 {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if f.Match(row) {
			out = append(out, row)
		}
	}
	return out
}

func containsFold(values []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, candidate := range values {
		if strings.EqualFold(strings.TrimSpace(candidate), v) {
			return true
		}
	}
	return false
}
