package notify

import (
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookSink POSTs a JSON payload to a generic webhook URL (e.g. a Slack
// incoming webhook or Lark custom bot), the Go analogue of
// original_source/helpers/lark_bot.py's session-based POST, built on the
// same resty client every venue adapter already uses for REST calls.
type WebhookSink struct {
	http   *resty.Client
	url    string
	logger *slog.Logger
}

func NewWebhookSink(url string, logger *slog.Logger) *WebhookSink {
	return &WebhookSink{
		http:   resty.New().SetTimeout(10 * time.Second),
		url:    url,
		logger: logger.With("component", "notify_webhook"),
	}
}

func (w *WebhookSink) Send(msg Message) {
	resp, err := w.http.R().
		SetBody(map[string]any{"text": msg.Text, "severity": string(msg.Severity)}).
		Post(w.url)
	if err != nil {
		w.logger.Error("webhook send failed", "error", err)
		return
	}
	if resp.StatusCode() >= 300 {
		w.logger.Error("webhook send failed", "status", resp.StatusCode(), "body", resp.String())
	}
}
