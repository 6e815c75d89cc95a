package storage

import (
	"encoding/json"
	"time"

	"campaign-alerts/internal/alerting"
)

// AlertRecord captures an emitted alert for de-duplication/auditing.
type AlertRecord struct {
	ID         int64
	RunID      string
	AlertID    string
	Type       string
	Severity   string
	CampaignID string
	AccountID  string
	Client     string
	Platform   string
	Message    string
	Metrics    json.RawMessage
	Notified   bool
	CreatedAt  time.Time
}

// NewAlertRecord converts an engine alert into its audit row.
func NewAlertRecord(runID string, a alerting.Alert, notified bool) (AlertRecord, error) {
	metrics, err := json.Marshal(a.Metrics)
	if err != nil {
		return AlertRecord{}, err
	}
	return AlertRecord{
		RunID:      runID,
		AlertID:    a.ID,
		Type:       string(a.Type),
		Severity:   string(a.Severity),
		CampaignID: a.CampaignID,
		AccountID:  a.AccountID,
		Client:     a.Client,
		Platform:   string(a.Platform),
		Message:    a.Message,
		Metrics:    metrics,
		Notified:   notified,
		CreatedAt:  a.CreatedAt,
	}, nil
}
