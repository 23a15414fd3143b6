package notify

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// Build assembles the configured channels into one sender. The returned
// cleanup closes any connections it opened.
func Build(cfg config.NotificationConfig, logger *zap.Logger) (*MultiSender, func(), error) {
	var senders []Sender
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, channel := range cfg.Channels {
		switch channel {
		case "smtp":
			senders = append(senders, NewSMTPSender(cfg.SMTP, cfg.EmailFrom))
		case "slack":
			if cfg.SlackWebhook == "" {
				return nil, cleanup, fmt.Errorf("slack channel enabled without NOTIFY_SLACK_WEBHOOK_URL")
			}
			senders = append(senders, NewWebhookSender(cfg.SlackWebhook))
		case "nats":
			sender, nc, err := ConnectNATS(cfg.NATSURL, cfg.NATSSubject)
			if err != nil {
				cleanup()
				return nil, func() {}, fmt.Errorf("connect nats: %w", err)
			}
			closers = append(closers, nc.Close)
			senders = append(senders, sender)
		case "log":
			senders = append(senders, NewLogSender(logger))
		default:
			logger.Warn("unknown notification channel ignored", zap.String("channel", channel))
		}
	}

	return NewMultiSender(senders...), cleanup, nil
}
