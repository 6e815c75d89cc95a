package alerting

import (
	"time"

	"campaign-alerts/internal/ads"
)

// Type discriminates the rule that produced an alert.
type Type string

const (
	TypeLowPerformance      Type = "low_performance"
	TypeLowBudget           Type = "low_budget"
	TypeNoSpend             Type = "no_spend"
	TypeEndingSoon          Type = "ending_soon"
	TypeBudgetExhausted     Type = "budget_exhausted"
	TypeImpressionDrop      Type = "impression_drop"
	TypeCPCSpike            Type = "cpc_spike"
	TypePausedWithPotential Type = "paused_with_potential"
	TypeScaleOpportunity    Type = "scale_opportunity"
	TypeImpressionShareLost Type = "impression_share_lost"
	TypeAccountBalance      Type = "account_balance"
)

// Severity ranks alerts for presentation.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Alert is one actionable finding about a campaign or an ad account.
type Alert struct {
	ID           string             `json:"id"`
	Type         Type               `json:"type"`
	Severity     Severity           `json:"severity"`
	CampaignID   string             `json:"campaign_id,omitempty"`
	CampaignName string             `json:"campaign_name"`
	AccountID    string             `json:"account_id,omitempty"`
	Client       string             `json:"client"`
	Platform     ads.Platform       `json:"platform"`
	Message      string             `json:"message"`
	Metrics      map[string]float64 `json:"metrics"`
	Actions      []string           `json:"actions"`
	CreatedAt    time.Time          `json:"created_at"`
}

func campaignAlertID(t Type, campaignID string, platform ads.Platform) string {
	return string(t) + "_" + campaignID + "_" + string(platform)
}

func accountAlertID(accountID string) string {
	return string(TypeAccountBalance) + "_" + accountID
}
