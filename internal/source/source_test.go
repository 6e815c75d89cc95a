package source

import (
	"context"
	"strings"
	"testing"
	"time"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/period"
)

const sampleCSV = `date,account_id,campaign_id,platform,client,spend,impressions,clicks,conversions_value,action_value_omni_purchase,campaign_status,daily_budget,campaign_end_date,search_budget_lost_impression_share
2024-01-08,A1,C1,google,hotel one,10.50,1000,10,,,ENABLED,100,2024-01-20,35.5
2024-01-09T00:00:00Z,M1,C2,meta,hotel two,abc,200,4,,80,ACTIVE,,,
`

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	g := rows[0]
	if g.Platform != ads.GoogleAds || g.Spend != 10.5 || g.Impressions != 1000 || g.DailyBudget != 100 {
		t.Fatalf("unexpected google row: %+v", g)
	}
	if g.ConversionsValue != nil {
		t.Fatal("blank conversions_value should stay absent")
	}
	if g.EndDate == nil || g.EndDate.Format(period.Layout) != "2024-01-20" {
		t.Fatalf("end date not parsed: %v", g.EndDate)
	}
	if g.SearchBudgetLostIS == nil || *g.SearchBudgetLostIS != 35.5 {
		t.Fatalf("lost impression share not parsed: %v", g.SearchBudgetLostIS)
	}

	m := rows[1]
	if m.Platform != ads.MetaAds || m.Spend != 0 {
		t.Fatalf("malformed spend should become zero: %+v", m)
	}
	if m.Revenue() != 80 {
		t.Fatalf("meta purchase value should be used as revenue, got %v", m.Revenue())
	}
}

func TestReadCSVRejectsBadDate(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("date,campaign_id\nyesterday,C1\n"))
	if err == nil {
		t.Fatal("malformed date should fail")
	}
	if _, err := ReadCSV(strings.NewReader("spend\n1\n")); err == nil {
		t.Fatal("missing required columns should fail")
	}
}

func TestMemoryFetchAndResolve(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	mem := NewMemory(2)
	mem.AddRows(
		ads.Row{Date: day(7), AccountID: "A1", CampaignID: "C0"},
		ads.Row{Date: day(8), AccountID: "A1", CampaignID: "C1"},
		ads.Row{Date: day(9), AccountID: "A2", CampaignID: "C2"},
		ads.Row{Date: day(10), AccountID: "A1", CampaignID: "C3"},
	)
	mem.AddHotels(
		Hotel{Name: "Hotel One", City: "Gramado", State: "RS", AccountIDs: []string{"A1"}},
		Hotel{Name: "Hotel Two", City: "Recife", State: "PE", AccountIDs: []string{"A2"}},
	)

	window, _ := period.Parse("2024-01-08", "2024-01-14")
	ctx := context.Background()

	all, err := mem.FetchRows(ctx, window, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].CampaignID != "C1" {
		t.Fatalf("row cap or window not applied: %+v", all)
	}

	only, _ := mem.FetchRows(ctx, window, []string{"A2"})
	if len(only) != 1 || only[0].CampaignID != "C2" {
		t.Fatalf("account filter not applied: %+v", only)
	}

	none, _ := mem.FetchRows(ctx, window, []string{})
	if len(none) != 0 {
		t.Fatalf("empty account filter should match nothing, got %+v", none)
	}

	ids, _ := mem.ResolveAccounts(ctx, ads.Filters{})
	if ids != nil {
		t.Fatalf("no entity filter should resolve to nil, got %v", ids)
	}
	ids, _ = mem.ResolveAccounts(ctx, ads.Filters{States: []string{"rs"}})
	if len(ids) != 1 || ids[0] != "A1" {
		t.Fatalf("state filter mismatch: %v", ids)
	}
	ids, _ = mem.ResolveAccounts(ctx, ads.Filters{Hotels: []string{"Hotel One"}, Cities: []string{"Recife"}})
	if ids == nil || len(ids) != 0 {
		t.Fatalf("conflicting filters should resolve to an empty non-nil slice, got %#v", ids)
	}
}
