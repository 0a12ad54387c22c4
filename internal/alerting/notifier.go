package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/storage"
)

// Digest is a periodic market summary pushed to operator channels.
type Digest struct {
	GeneratedAt   time.Time
	Window        time.Duration
	Stats         map[storage.Direction]*rates.Statistics
	Outliers      int64
	AdditionalMsg string
}

// Notifier pushes a digest to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, digest Digest) error
}

// MultiNotifier fans a digest out to several channels and joins their errors.
type MultiNotifier []Notifier

// Notify sends to every channel even when an earlier one fails.
func (m MultiNotifier) Notify(ctx context.Context, digest Digest) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, digest); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TelegramNotifier posts digests through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram channel.
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
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "digest_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered digest.
func (n *TelegramNotifier) Notify(ctx context.Context, digest Digest) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderDigest(digest),
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
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Time("generated_at", digest.GeneratedAt).Msg("digest sent (telegram)")
	return nil
}

// RenderDigest formats a digest as plain text.
func RenderDigest(d Digest) string {
	builder := strings.Builder{}
	builder.WriteString("[USD/LBP Rate Digest]\n")
	builder.WriteString(fmt.Sprintf("Generated: %s\n", d.GeneratedAt.Format("2006-01-02 15:04:05")))
	builder.WriteString(fmt.Sprintf("Window: %s\n", d.Window))
	for _, dir := range storage.Directions {
		stats := d.Stats[dir]
		if stats == nil {
			builder.WriteString(fmt.Sprintf("%s: no transactions\n", dir))
			continue
		}
		builder.WriteString(fmt.Sprintf("%s: avg %s (min %s, max %s), change %s%%, volatility %s%%, n=%d\n",
			dir,
			stats.AverageRate.StringFixed(2),
			stats.MinRate.StringFixed(2),
			stats.MaxRate.StringFixed(2),
			stats.PercentageChange.StringFixed(2),
			stats.VolatilityPercent.StringFixed(2),
			stats.Count,
		))
	}
	if d.Outliers > 0 {
		builder.WriteString(fmt.Sprintf("Outliers excluded: %d\n", d.Outliers))
	}
	if d.AdditionalMsg != "" {
		builder.WriteString(d.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
var _ Notifier = MultiNotifier(nil)
