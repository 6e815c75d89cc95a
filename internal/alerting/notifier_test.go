package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"campaign-alerts/internal/ads"
)

func sampleDigest() Digest {
	return Digest{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 1, 14, 9, 0, 0, 0, time.UTC),
		Alerts: []Alert{
			{ID: "no_spend_C1_Google Ads", Type: TypeNoSpend, Severity: SeverityCritical, Client: "Hotel One", CampaignName: "Brand", Platform: ads.GoogleAds, Message: "no spend"},
			{ID: "scale_opportunity_C2_Meta Ads", Type: TypeScaleOpportunity, Severity: SeverityInfo, Client: "Hotel Two", CampaignName: "Prospecting", Platform: ads.MetaAds, Message: "scale"},
		},
		Configs: map[string]HotelConfig{
			"hotel one": {WebhookActive: true},
			"Hotel Two": {WebhookActive: false},
		},
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	text := received["text"]
	if !strings.Contains(text, "Critical: 1") || !strings.Contains(text, "Hotel One / Brand (google)") {
		t.Fatalf("unexpected digest text:\n%s", text)
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleDigest()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestTelegramNotifierSkipsEmptyDigest(t *testing.T) {
	notifier := NewTelegramNotifier("token", "chat", "http://127.0.0.1:1", time.Second, testLogger())
	if err := notifier.Notify(context.Background(), Digest{}); err != nil {
		t.Fatalf("empty digest should not be sent: %v", err)
	}
}

func TestWebhookNotifierOnlyActiveHotels(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []WebhookPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("webhook notify: %v", err)
	}

	if len(payloads) != 1 {
		t.Fatalf("expected one payload, got %d", len(payloads))
	}
	if payloads[0].Hotel != "Hotel One" || len(payloads[0].Alerts) != 1 || payloads[0].RunID != "run-1" {
		t.Fatalf("unexpected payload: %+v", payloads[0])
	}
}

func TestWebhookNotifierStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleDigest()); err == nil {
		t.Fatal("non-2xx response should fail")
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
