package alerting

import "testing"

func TestSummarizeDedupeAndSort(t *testing.T) {
	alerts := []Alert{
		{ID: "scale_opportunity_C2_Meta Ads", Type: TypeScaleOpportunity, Severity: SeverityInfo},
		{ID: "low_budget_C1_Google Ads", Type: TypeLowBudget, Severity: SeverityWarning},
		{ID: "no_spend_C3_Google Ads", Type: TypeNoSpend, Severity: SeverityCritical},
		{ID: "low_budget_C1_Google Ads", Type: TypeLowBudget, Severity: SeverityWarning},
	}

	unique := Dedupe(alerts)
	if len(unique) != 3 {
		t.Fatalf("expected 3 unique alerts, got %d", len(unique))
	}

	s := Summarize(unique)
	if s.Total != 3 || s.BySeverity[SeverityCritical] != 1 || s.ByType[TypeLowBudget] != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}

	SortBySeverity(unique)
	if unique[0].Severity != SeverityCritical || unique[2].Severity != SeverityInfo {
		t.Fatalf("unexpected order: %+v", unique)
	}

	open := FilterResolved(unique, map[string]bool{"no_spend_C3_Google Ads": true})
	if len(open) != 2 {
		t.Fatalf("resolved alert should be dropped, got %+v", open)
	}
	for _, a := range open {
		if a.ID == "no_spend_C3_Google Ads" {
			t.Fatal("resolved alert still present")
		}
	}
}

func TestHotelConfigResolve(t *testing.T) {
	ctr := 0.5
	th := HotelConfig{CTRMin: &ctr}.Resolve(DefaultThresholds)
	if th.CTRMin != 0.5 || th.ROASMin != 2.0 || th.CPAMax != 500 {
		t.Fatalf("unexpected thresholds: %+v", th)
	}
}
