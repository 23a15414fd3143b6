package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// WebhookSender posts notifications to a Slack incoming webhook.
type WebhookSender struct {
	url string
}

// NewWebhookSender returns a sender for url.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{url: url}
}

func (w *WebhookSender) Name() string {
	return "slack"
}

func (w *WebhookSender) Send(ctx context.Context, msg Message) error {
	payload := &slack.WebhookMessage{
		Text: fmt.Sprintf("*%s*\n%s", msg.Subject, msg.Body),
	}
	return slack.PostWebhookContext(ctx, w.url, payload)
}
