package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  environment: test\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Name != "campaignwatch" || cfg.App.Environment != "test" {
		t.Fatalf("unexpected app config: %+v", cfg.App)
	}
	if cfg.Source.MaxRows != 10000 || cfg.Source.LookbackDays != 7 {
		t.Fatalf("unexpected source config: %+v", cfg.Source)
	}
	if cfg.Alerting.ROASMin != 2.0 || cfg.Alerting.CPAMax != 500 || cfg.Alerting.CTRMin != 1.0 || cfg.Alerting.AvgCPC != 2.5 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Alerting)
	}
	if cfg.Scheduler.Interval != time.Hour || cfg.Alerting.Cooldown != 6*time.Hour {
		t.Fatalf("unexpected durations: %v %v", cfg.Scheduler.Interval, cfg.Alerting.Cooldown)
	}
	if cfg.Alerting.Retention != 30*24*time.Hour || cfg.Source.REST.Timeout != 15*time.Second || cfg.Source.REST.BaseURL != "" {
		t.Fatalf("unexpected retention or rest config: %v %+v", cfg.Alerting.Retention, cfg.Source.REST)
	}
	if !cfg.ChannelEnabled("Telegram") || cfg.ChannelEnabled("webhook") {
		t.Fatalf("unexpected channels: %v", cfg.Alerting.Channels)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
source:
  max_rows: 500
aggregation:
  client_aliases:
    rosa: Hotel Rosa
alerting:
  roas_min: 3
  cooldown: 30m
  channels: telegram,webhook
  webhook:
    enabled: true
    url: http://hooks.local/alerts
`)
	t.Setenv("CAMPAIGNWATCH_SOURCE_LOOKBACK_DAYS", "14")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.MaxRows != 500 || cfg.Source.LookbackDays != 14 {
		t.Fatalf("unexpected source config: %+v", cfg.Source)
	}
	if cfg.Aggregation.ClientAliases["rosa"] != "Hotel Rosa" {
		t.Fatalf("aliases not decoded: %+v", cfg.Aggregation.ClientAliases)
	}
	if cfg.Alerting.ROASMin != 3 || cfg.Alerting.Cooldown != 30*time.Minute {
		t.Fatalf("unexpected alerting config: %+v", cfg.Alerting)
	}
	if !cfg.ChannelEnabled("webhook") {
		t.Fatalf("comma separated channels not decoded: %v", cfg.Alerting.Channels)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"telegram token": "alerting:\n  telegram:\n    enabled: true\n    chat_id: \"1\"\n",
		"webhook url":    "alerting:\n  webhook:\n    enabled: true\n",
		"negative roas":  "alerting:\n  roas_min: -1\n",
		"zero max rows":  "source:\n  max_rows: 0\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 100}}
	if got := cfg.ResolveMaxPoints(0); got != 100 {
		t.Fatalf("got %d, want 100", got)
	}
	if got := cfg.ResolveMaxPoints(5); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}
