package alerting

// HotelConfig is the per-hotel alert configuration as stored by the
// dashboard. Unset thresholds fall back to the engine defaults.
type HotelConfig struct {
	ROASMin       *float64 `json:"roas_min,omitempty"`
	CPAMax        *float64 `json:"cpa_max,omitempty"`
	CTRMin        *float64 `json:"ctr_min,omitempty"`
	WebhookActive bool     `json:"webhook_active"`
}

// Thresholds are the resolved limits used by the low performance rule.
type Thresholds struct {
	ROASMin float64 `json:"roas_min"`
	CPAMax  float64 `json:"cpa_max"`
	CTRMin  float64 `json:"ctr_min"`
}

// DefaultThresholds apply when neither the hotel nor the deployment overrides them.
var DefaultThresholds = Thresholds{ROASMin: 2.0, CPAMax: 500, CTRMin: 1.0}

// Resolve applies the configured-or-default policy once per hotel.
func (c HotelConfig) Resolve(defaults Thresholds) Thresholds {
	t := defaults
	if c.ROASMin != nil {
		t.ROASMin = *c.ROASMin
	}
	if c.CPAMax != nil {
		t.CPAMax = *c.CPAMax
	}
	if c.CTRMin != nil {
		t.CTRMin = *c.CTRMin
	}
	return t
}
