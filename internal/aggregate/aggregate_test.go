package aggregate

import (
	"math"
	"reflect"
	"testing"
	"time"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/calc"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func scenarioRows() []ads.Row {
	return []ads.Row{
		{
			Date: day("2024-01-08"), AccountID: "A1", CampaignID: "C1", Platform: "google",
			Client: "hotel one", Spend: 10, Impressions: 1000, Clicks: 10, ConversionsValue: calc.Float(0),
			Status: "ENABLED", Objective: "conversions",
		},
		{
			Date: day("2024-01-09"), AccountID: "A1", CampaignID: "C1", Platform: "GoogleAds",
			Client: "hotel one", Spend: 20, Impressions: 1000, Clicks: 10, ConversionsValue: calc.Float(0),
			Status: "ENABLED", Objective: "conversions",
		},
	}
}

func TestCampaignsScenario(t *testing.T) {
	agg := New(nil)
	rollups := agg.Campaigns(scenarioRows())
	if len(rollups) != 1 {
		t.Fatalf("expected a single rollup, got %d", len(rollups))
	}
	c := rollups[0]
	if c.Platform != ads.GoogleAds {
		t.Fatalf("platform not normalised: %q", c.Platform)
	}
	if c.Spend != 30 || c.Clicks != 20 || c.Impressions != 2000 {
		t.Fatalf("unexpected counters: %+v", c.Counters)
	}
	if c.ROAS != 0 {
		t.Fatalf("expected roas 0, got %v", c.ROAS)
	}
	if math.Abs(c.CTR-1.0) > 1e-9 {
		t.Fatalf("expected ctr 1.0, got %v", c.CTR)
	}
	if c.LatestDaySpend != 20 {
		t.Fatalf("latest day spend = %v, want 20", c.LatestDaySpend)
	}
	if c.DaysObserved != 2 {
		t.Fatalf("days observed = %d, want 2", c.DaysObserved)
	}
	if c.Client != "Hotel One" {
		t.Fatalf("client should be title-cased, got %q", c.Client)
	}
}

func TestLatestDaySpendIgnoresOlderAndSumsSameDay(t *testing.T) {
	rows := []ads.Row{
		{Date: day("2024-01-09"), CampaignID: "C1", Platform: "google", Spend: 20},
		{Date: day("2024-01-08"), CampaignID: "C1", Platform: "google", Spend: 10},
		{Date: day("2024-01-09"), CampaignID: "C1", Platform: "google", Spend: 5},
	}
	c := New(nil).Campaigns(rows)[0]
	if c.LatestDaySpend != 25 {
		t.Fatalf("latest day spend = %v, want 25", c.LatestDaySpend)
	}
	if c.Spend != 35 {
		t.Fatalf("spend = %v, want 35", c.Spend)
	}
	if !c.LatestDate.Equal(day("2024-01-09")) {
		t.Fatalf("latest date = %v", c.LatestDate)
	}
}

func TestCampaignsIdempotent(t *testing.T) {
	agg := New(ClientAliases{"plaza": "Plaza Hotel"})
	rows := scenarioRows()
	first := agg.Campaigns(rows)
	second := agg.Campaigns(rows)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregating twice should produce identical rollups:\n%+v\n%+v", first, second)
	}
}

func TestSamePlatformKeyAcrossLabelsAndSeparatePlatforms(t *testing.T) {
	rows := []ads.Row{
		{Date: day("2024-01-08"), CampaignID: "C1", Platform: "google", Spend: 1},
		{Date: day("2024-01-08"), CampaignID: "C1", Platform: "Google Ads", Spend: 1},
		{Date: day("2024-01-08"), CampaignID: "C1", Platform: "meta", Spend: 1},
	}
	rollups := New(nil).Campaigns(rows)
	if len(rollups) != 2 {
		t.Fatalf("expected google and meta rollups, got %d", len(rollups))
	}
	idx := Index(rollups)
	if idx[CampaignKey{CampaignID: "C1", Platform: ads.GoogleAds}].Spend != 2 {
		t.Fatal("google rows should share one key")
	}
}

func TestClientAliases(t *testing.T) {
	r := NewClientResolver(ClientAliases{"Plaza": "Plaza Hotel", "grand plaza": "Grand Plaza Resort"})
	if got := r.Resolve("GRAND PLAZA - Search", "whatever"); got != "Grand Plaza Resort" {
		t.Fatalf("longest token should win, got %q", got)
	}
	if got := r.Resolve("Plaza Meta", "x"); got != "Plaza Hotel" {
		t.Fatalf("alias not applied, got %q", got)
	}
	if got := r.Resolve("Unrelated", "  pousada   do sol "); got != "Pousada Do Sol" {
		t.Fatalf("fallback title case mismatch, got %q", got)
	}
}

func TestRevenueAndConversionFallback(t *testing.T) {
	rows := []ads.Row{
		{Date: day("2024-01-08"), CampaignID: "M1", Platform: "meta", Spend: 50, PurchaseValue: calc.Float(200), PurchaseCount: calc.Float(2)},
		{Date: day("2024-01-09"), CampaignID: "M1", Platform: "meta", Spend: 50, LeadsCount: calc.Float(3)},
	}
	c := New(nil).Campaigns(rows)[0]
	if c.Revenue != 200 || c.Conversions != 5 {
		t.Fatalf("unexpected revenue/conversions: %v / %v", c.Revenue, c.Conversions)
	}
	if c.ROAS != 2 || c.CPA != 20 {
		t.Fatalf("unexpected roas/cpa: %v / %v", c.ROAS, c.CPA)
	}
}

func TestAccountsFold(t *testing.T) {
	rows := []ads.Row{
		{Date: day("2024-01-08"), AccountID: "A1", CampaignID: "C1", Platform: "meta", Spend: 100, SpendCap: 100000, AmountSpent: 90000},
		{Date: day("2024-01-09"), AccountID: "A1", CampaignID: "C2", Platform: "meta", Spend: 200, SpendCap: 100000, AmountSpent: 95000},
		{Date: day("2024-01-09"), AccountID: "A1", CampaignID: "C1", Platform: "meta", Spend: 50, SpendCap: 100000, AmountSpent: 95000},
		{Date: day("2024-01-09"), AccountID: "A2", CampaignID: "C3", Platform: "google", Spend: 7},
	}
	accounts := Accounts(New(nil).Campaigns(rows))
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	a1 := accounts[0]
	if a1.AccountID != "A1" || a1.TotalPeriodSpend != 350 || a1.DaysInPeriod != 2 || a1.Campaigns != 2 {
		t.Fatalf("unexpected account rollup: %+v", a1)
	}
	if a1.SpendCap != 100000 || a1.AmountSpent != 95000 {
		t.Fatalf("expected freshest spend snapshot, got %+v", a1)
	}
}

func TestGroupingVariants(t *testing.T) {
	rows := []ads.Row{
		{Date: day("2024-01-09"), CampaignID: "C1", Platform: "google", Objective: "conversions", BiddingStrategy: "target_roas", Spend: 10, Clicks: 5},
		{Date: day("2024-01-08"), CampaignID: "C2", Platform: "google", Objective: "CONVERSIONS", Spend: 30, Clicks: 5},
		{Date: day("2024-01-08"), CampaignID: "C3", Platform: "meta", Objective: "", Spend: 5},
	}

	objectives := ByObjective(rows)
	if len(objectives) != 2 || objectives[0].Key != "CONVERSIONS" || objectives[0].Spend != 40 || objectives[0].Campaigns != 2 {
		t.Fatalf("unexpected objective groups: %+v", objectives)
	}
	if objectives[0].CPC != 4 {
		t.Fatalf("derived cpc not computed: %v", objectives[0].CPC)
	}
	if objectives[1].Key != Unspecified {
		t.Fatalf("blank objective should be %s, got %q", Unspecified, objectives[1].Key)
	}

	strategies := ByBiddingStrategy(rows)
	if len(strategies) != 2 {
		t.Fatalf("unexpected strategy groups: %+v", strategies)
	}

	dates := ByDate(rows)
	if len(dates) != 2 || dates[0].Key != "2024-01-08" || dates[0].Spend != 35 {
		t.Fatalf("unexpected temporal groups: %+v", dates)
	}
}

func TestTotalsPlatformsAndTop(t *testing.T) {
	rollups := New(nil).Campaigns([]ads.Row{
		{Date: day("2024-01-08"), CampaignID: "C1", Platform: "google", Spend: 10, ConversionsValue: calc.Float(50)},
		{Date: day("2024-01-08"), CampaignID: "C2", Platform: "meta", Spend: 20, PurchaseValue: calc.Float(10)},
		{Date: day("2024-01-08"), CampaignID: "C3", Platform: "meta", Spend: 5},
	})
	totals := Totals(rollups)
	if totals.Spend != 35 || totals.Revenue != 60 || totals.Campaigns != 3 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	platforms := ByPlatform(rollups)
	if platforms[ads.MetaAds].Spend != 25 || platforms[ads.GoogleAds].ROAS != 5 {
		t.Fatalf("unexpected platform split: %+v", platforms)
	}
	top := TopCampaigns(rollups, 2)
	if len(top) != 2 || top[0].CampaignID != "C1" || top[1].CampaignID != "C2" {
		t.Fatalf("unexpected ranking: %+v", top)
	}
}
