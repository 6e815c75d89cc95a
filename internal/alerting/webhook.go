package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// WebhookPayload is the body posted for one hotel.
type WebhookPayload struct {
	RunID       string    `json:"run_id"`
	Hotel       string    `json:"hotel"`
	GeneratedAt time.Time `json:"generated_at"`
	Summary     Summary   `json:"summary"`
	Alerts      []Alert   `json:"alerts"`
}

// WebhookNotifier 将告警按酒店分组推送到外部 webhook，仅针对启用了 webhook 的酒店。
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookNotifier 构造 webhook 告警器。
func NewWebhookNotifier(url string, timeout time.Duration, logger zerolog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "alert_webhook").Logger(),
	}
}

// Notify posts one payload per hotel with an active webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, digest Digest) error {
	byHotel := make(map[string][]Alert)
	for _, a := range digest.Alerts {
		cfg, ok := lookupConfig(digest.Configs, a.Client)
		if !ok || !cfg.WebhookActive {
			continue
		}
		byHotel[a.Client] = append(byHotel[a.Client], a)
	}

	hotels := make([]string, 0, len(byHotel))
	for h := range byHotel {
		hotels = append(hotels, h)
	}
	sort.Strings(hotels)

	for _, hotel := range hotels {
		alerts := byHotel[hotel]
		payload := WebhookPayload{
			RunID:       digest.RunID,
			Hotel:       hotel,
			GeneratedAt: digest.GeneratedAt,
			Summary:     Summarize(alerts),
			Alerts:      alerts,
		}
		if err := n.post(ctx, payload); err != nil {
			return fmt.Errorf("webhook for %s: %w", hotel, err)
		}
		n.logger.Info().Str("run_id", digest.RunID).Str("hotel", hotel).
			Int("alerts", len(alerts)).Msg("告警已发送 (Webhook)")
	}
	return nil
}

func (n *WebhookNotifier) post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook 响应码异常: %d", resp.StatusCode)
	}
	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)
