package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/period"
)

func newRESTServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/campaign_metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "bad token"})
			return
		}
		if r.URL.Query().Get("start") != "2024-01-08" || r.URL.Query().Get("account_id") != "A1,A2" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"date":"2024-01-08T00:00:00Z","account_id":"A1","campaign_id":"C1","platform":"google_ads",
			 "spend":"12.5","impressions":1000,"clicks":20,"conversions_value":null,"campaign_end_date":"2024-01-10"},
			{"date":"2024-01-09","account_id":"A2","campaign_id":"M1","platform":"meta",
			 "spend":3,"action_value_omni_purchase":"45.0","campaign_status":"ACTIVE"}
		]`))
	})
	mux.HandleFunc("/hotels", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Hotel{
			{Name: "Rosa", City: "Gramado", State: "RS", AccountIDs: []string{"A1"}},
			{Name: "Azul", City: "Natal", State: "RN", AccountIDs: []string{"A2"}},
		})
	})
	mux.HandleFunc("/alert_configs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Rosa":{"roas_min":3,"webhook_active":true}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRESTFetchRows(t *testing.T) {
	srv := newRESTServer(t)
	src := NewREST(RESTOptions{BaseURL: srv.URL + "/", Token: "secret", Timeout: time.Second}, zerolog.Nop())

	window, _ := period.Parse("2024-01-08", "2024-01-14")
	rows, err := src.FetchRows(context.Background(), window, []string{"A1", "A2"})
	if err != nil {
		t.Fatalf("FetchRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Spend != 12.5 || rows[0].Impressions != 1000 || rows[0].Platform != ads.GoogleAds || rows[0].ConversionsValue != nil {
		t.Fatalf("unexpected google row: %+v", rows[0])
	}
	if rows[0].EndDate == nil || rows[0].EndDate.Format(period.Layout) != "2024-01-10" {
		t.Fatalf("end date not parsed: %+v", rows[0].EndDate)
	}
	if rows[1].Platform != ads.MetaAds || rows[1].Revenue() != 45 {
		t.Fatalf("unexpected meta row: %+v", rows[1])
	}

	bad := NewREST(RESTOptions{BaseURL: srv.URL, Token: "nope"}, zerolog.Nop())
	if _, err := bad.FetchRows(context.Background(), window, []string{"A1", "A2"}); err == nil {
		t.Fatal("unauthorized response should fail")
	}
}

func TestRESTResolveAndConfigs(t *testing.T) {
	srv := newRESTServer(t)
	src := NewREST(RESTOptions{BaseURL: srv.URL}, zerolog.Nop())

	ids, err := src.ResolveAccounts(context.Background(), ads.Filters{States: []string{"rn"}})
	if err != nil || len(ids) != 1 || ids[0] != "A2" {
		t.Fatalf("unexpected ids %v %v", ids, err)
	}
	if ids, _ := src.ResolveAccounts(context.Background(), ads.Filters{}); ids != nil {
		t.Fatalf("no entity filter should resolve to nil, got %v", ids)
	}

	configs, err := src.AlertConfigs(context.Background())
	if err != nil {
		t.Fatalf("AlertConfigs: %v", err)
	}
	rosa := configs["Rosa"]
	if rosa.ROASMin == nil || *rosa.ROASMin != 3 || !rosa.WebhookActive {
		t.Fatalf("unexpected config: %+v", rosa)
	}
}

func TestRESTNotConfigured(t *testing.T) {
	src := NewREST(RESTOptions{}, zerolog.Nop())
	if _, err := src.AlertConfigs(context.Background()); err == nil {
		t.Fatal("missing base url should fail")
	}
}

func TestParseHTTPError(t *testing.T) {
	if err := parseHTTPError(500, []byte(`{"error":"down"}`)); err.Error() != "reporting api error (500): down" {
		t.Fatalf("unexpected error %v", err)
	}
	if err := parseHTTPError(502, nil); err.Error() != "reporting api error (502)" {
		t.Fatalf("unexpected error %v", err)
	}
	if err := parseHTTPError(503, []byte("gateway\n")); err.Error() != "reporting api error (503): gateway" {
		t.Fatalf("unexpected error %v", err)
	}
}
