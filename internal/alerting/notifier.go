package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"campaign-alerts/internal/period"
)

// Digest 封装一次评估需要推送的告警。
type Digest struct {
	RunID       string
	GeneratedAt time.Time
	Window      period.Range
	Alerts      []Alert
	Configs     map[string]HotelConfig
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, digest Digest) error
}

// TelegramNotifier 通过 Telegram Bot API 推送摘要。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	maxItems int
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxItems: 20,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, digest Digest) error {
	if len(digest.Alerts) == 0 {
		return nil
	}

	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderDigest(digest, n.maxItems),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("run_id", digest.RunID).
		Int("alerts", len(digest.Alerts)).
		Msg("告警已发送 (Telegram)")
	return nil
}

func renderDigest(d Digest, maxItems int) string {
	summary := Summarize(d.Alerts)

	builder := strings.Builder{}
	builder.WriteString("[Campaign Alerts]\n")
	if !d.Window.IsZero() {
		builder.WriteString(fmt.Sprintf("Window: %s\n", d.Window))
	}
	builder.WriteString(fmt.Sprintf("Generated: %s UTC\n", d.GeneratedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Critical: %d  Warning: %d  Info: %d\n",
		summary.BySeverity[SeverityCritical], summary.BySeverity[SeverityWarning], summary.BySeverity[SeverityInfo]))

	for i, a := range d.Alerts {
		if maxItems > 0 && i >= maxItems {
			builder.WriteString(fmt.Sprintf("... and %d more\n", len(d.Alerts)-maxItems))
			break
		}
		builder.WriteString(fmt.Sprintf("- [%s] %s / %s (%s): %s\n",
			strings.ToUpper(string(a.Severity)), a.Client, a.CampaignName, a.Platform.Short(), a.Message))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
