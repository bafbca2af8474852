package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/slack-go/slack"

	"github.com/spec-kit/sla-escalation-service/internal/config"
	"github.com/spec-kit/sla-escalation-service/internal/domain"
	"github.com/spec-kit/sla-escalation-service/internal/events"
)

// WebhookClient posts escalation messages to a Slack-compatible incoming webhook.
type WebhookClient struct {
	url        string
	httpClient *http.Client
}

// NewWebhookClient builds a client. An empty URL yields a disabled client.
func NewWebhookClient(cfg config.NotificationConfig) *WebhookClient {
	return &WebhookClient{
		url:        strings.TrimSpace(cfg.WebhookURL),
		httpClient: &http.Client{Timeout: cfg.WebhookTimeout()},
	}
}

// Enabled reports whether a webhook URL is configured.
func (w *WebhookClient) Enabled() bool {
	return w != nil && w.url != ""
}

// Send delivers one message. Delivery is attempted once.
func (w *WebhookClient) Send(ctx context.Context, payload events.EscalationPayload) error {
	if !w.Enabled() {
		return nil
	}
	msg := &slack.WebhookMessage{Text: FormatMessage(payload)}
	if err := slack.PostWebhookCustomHTTPContext(ctx, w.url, w.httpClient, msg); err != nil {
		return fmt.Errorf("post webhook for ticket %d: %w", payload.TicketID, err)
	}
	return nil
}

// FormatMessage renders the human-readable webhook text.
func FormatMessage(payload events.EscalationPayload) string {
	if payload.Event == domain.EscalationLevelBreach {
		return fmt.Sprintf(":rotating_light: SLA breached for Ticket #%d: %.2f%% of the resolution window elapsed.",
			payload.TicketID, payload.RemainingPercent)
	}
	return fmt.Sprintf(":warning: SLA alert for Ticket #%d: %.2f%% of the resolution window elapsed.",
		payload.TicketID, payload.RemainingPercent)
}
