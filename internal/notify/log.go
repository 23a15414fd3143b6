package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// LogSender writes notifications to the service log. It is the default
// channel in development.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Name() string {
	return "log"
}

func (l *LogSender) Send(_ context.Context, msg Message) error {
	l.logger.Info("notification",
		zap.String("to", strings.Join(msg.To, ",")),
		zap.String("subject", msg.Subject),
		zap.String("ticket_id", msg.TicketID))
	return nil
}
