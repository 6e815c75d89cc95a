package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"campaign-alerts/internal/aggregate"
	"campaign-alerts/internal/alerting"
	"campaign-alerts/internal/config"
)

func testApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Source.MaxRows = 1000
	cfg.Source.LookbackDays = 7
	cfg.Aggregation.TopCampaigns = 5
	cfg.Alerting.ROASMin = 2
	cfg.Alerting.CPAMax = 500
	cfg.Alerting.CTRMin = 1
	cfg.Alerting.AvgCPC = 2.5
	cfg.Export.MaxDataPoints = 100

	var out bytes.Buffer
	a := NewApp(cfg, zerolog.Nop())
	a.Out = &out
	return a, &out
}

const sampleCSV = "\ufeffdate,account_id,campaign_id,campaign_name,platform,client,spend,impressions,clicks,conversions_value,campaign_status\n" +
	"2024-01-08,A1,C1,Search Brand,google,rosa,10,1000,10,0,ENABLED\n" +
	"2024-01-09 00:00:00,A1,C1,Search Brand,google,rosa,20,1000,10,0,ENABLED\n" +
	"2024-01-08,A2,M1,Reach,meta,azul,0,0,0,,ACTIVE\n" +
	"2024-01-09,A2,M1,Reach,meta,azul,0,0,0,,ACTIVE\n"

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestFilterOptions(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	f := FilterOptions{Days: 7, Hotels: []string{"Rosa"}, YearOverYear: true}.Filters(now)
	if f.StartDate != "2024-03-04" || f.EndDate != "2024-03-10" || !f.CompareYearAgo || f.Hotels[0] != "Rosa" {
		t.Fatalf("unexpected filters: %+v", f)
	}

	f = FilterOptions{Start: "2024-01-01", End: "2024-01-31", Days: 7}.Filters(now)
	if f.StartDate != "2024-01-01" || f.EndDate != "2024-01-31" {
		t.Fatalf("explicit dates must win: %+v", f)
	}

	if f := (FilterOptions{}).Filters(now); f.StartDate != "" || f.EndDate != "" {
		t.Fatalf("no window expected: %+v", f)
	}
}

func TestEvaluateFromCSV(t *testing.T) {
	a, out := testApp(t)
	err := a.Evaluate(context.Background(), AlertsOptions{
		CSVPath: writeCSV(t),
		Filters: FilterOptions{Start: "2024-01-08", End: "2024-01-14"},
		JSON:    true,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	var resp struct {
		Alerts  []alerting.Alert `json:"alerts"`
		Summary alerting.Summary `json:"summary"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	byID := make(map[string]alerting.Alert)
	for _, al := range resp.Alerts {
		byID[al.ID] = al
	}
	if _, ok := byID["low_performance_C1_Google Ads"]; !ok {
		t.Fatalf("expected low performance alert, got %+v", resp.Alerts)
	}
	if _, ok := byID["no_spend_M1_Meta Ads"]; !ok {
		t.Fatalf("expected no spend alert for the idle meta campaign, got %+v", resp.Alerts)
	}
	if resp.Alerts[0].Severity != alerting.SeverityCritical {
		t.Fatal("output should be sorted by severity")
	}
}

func TestEvaluateTable(t *testing.T) {
	a, out := testApp(t)
	err := a.Evaluate(context.Background(), AlertsOptions{
		CSVPath: writeCSV(t),
		Filters: FilterOptions{Start: "2024-01-08", End: "2024-01-14"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Severity") || !strings.Contains(text, "CRITICAL") || !strings.Contains(text, "critical,") {
		t.Fatalf("unexpected table:\n%s", text)
	}

	if err := a.Evaluate(context.Background(), AlertsOptions{}); err == nil {
		t.Fatal("missing --csv must fail")
	}
}

func TestAnalyticsFromCSV(t *testing.T) {
	a, out := testApp(t)
	err := a.Analytics(context.Background(), AlertsOptions{
		CSVPath: writeCSV(t),
		Filters: FilterOptions{Start: "2024-01-08", End: "2024-01-14", Hotels: []string{"azul"}},
	})
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if !strings.Contains(out.String(), `"campaigns"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestDownsampleDays(t *testing.T) {
	days := make([]aggregate.GroupRollup, 10)
	for i := range days {
		days[i].Key = time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	}
	got := downsampleDays(days, 4)
	if len(got) != 4 || got[0].Key != "2024-01-01" || got[3].Key != "2024-01-10" {
		t.Fatalf("unexpected downsample: %+v", got)
	}
	if len(downsampleDays(days, 0)) != 10 || len(downsampleDays(days, 20)) != 10 {
		t.Fatal("no downsampling expected")
	}
	if got := downsampleDays(days, 1); len(got) != 1 || got[0].Key != "2024-01-10" {
		t.Fatalf("single point should keep the latest day: %+v", got)
	}
}

func TestWriteDaysCSV(t *testing.T) {
	var d aggregate.GroupRollup
	d.Key = "2024-01-08"
	d.Spend = 10.5
	d.Clicks = 3
	d.Campaigns = 2

	path := filepath.Join(t.TempDir(), "nested", "days.csv")
	if err := writeDaysCSV(path, []aggregate.GroupRollup{d}); err != nil {
		t.Fatalf("writeDaysCSV: %v", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "2024-01-08,10.50,0.00,0.00,3,0,") || !strings.HasSuffix(lines[1], ",2") {
		t.Fatalf("unexpected csv:\n%s", body)
	}
}

func TestSyntheticRowsTripRules(t *testing.T) {
	now := time.Date(2024, 5, 20, 19, 0, 0, 0, time.UTC)
	campaigns := aggregate.New(nil).Campaigns(syntheticRows("", now))
	alerts := alerting.NewEngine(alerting.Options{}).Evaluate(alerting.Input{
		Campaigns: campaigns,
		Now:       now,
	})

	want := map[alerting.Type]bool{
		alerting.TypeLowPerformance:      false,
		alerting.TypeEndingSoon:          false,
		alerting.TypeImpressionShareLost: false,
	}
	for _, al := range alerts {
		if _, ok := want[al.Type]; ok {
			want[al.Type] = true
		}
		if al.Client != "Simulated Hotel" {
			t.Fatalf("unexpected client %q", al.Client)
		}
	}
	for kind, seen := range want {
		if !seen {
			t.Fatalf("synthetic data should trigger %s, got %+v", kind, alerts)
		}
	}
}

func TestSimulateRequiresChannels(t *testing.T) {
	a, _ := testApp(t)
	if err := a.SimulateAlert(context.Background(), SimulateOptions{}); err == nil {
		t.Fatal("disabled alerting must fail")
	}
	a.Config.Alerting.Enabled = true
	if err := a.SimulateAlert(context.Background(), SimulateOptions{}); err == nil {
		t.Fatal("no channels must fail")
	}
}

func TestAnalyticsFromReportingAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/campaign_metrics", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"date":"2024-01-08","account_id":"A1","campaign_id":"C1","platform":"google","client":"rosa","spend":"10","impressions":1000,"clicks":10}]`))
	})
	mux.HandleFunc("/alert_configs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a, out := testApp(t)
	a.Config.Source.REST.BaseURL = srv.URL
	err := a.Analytics(context.Background(), AlertsOptions{
		Filters: FilterOptions{Start: "2024-01-08", End: "2024-01-14"},
	})
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if !strings.Contains(out.String(), `"C1"`) {
		t.Fatalf("expected campaign from reporting api: %s", out)
	}

	a, _ = testApp(t)
	if err := a.Analytics(context.Background(), AlertsOptions{}); err == nil {
		t.Fatal("no source configured must fail")
	}
}
