package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// NotificationService turns lifecycle events into notices in the ticket
// owner's inbox.
type NotificationService struct {
	dispatcher events.Dispatcher
	notices    repository.NoticeRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notices repository.NoticeRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notices:    notices,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketUnassigned, n.handleTicketUnassigned)
	n.dispatcher.Subscribe(events.EventTicketResolved, n.handleTicketResolved)
}

// Drain returns and clears the actor's notices.
func (n *NotificationService) Drain(ctx context.Context, actor *domain.User) ([]domain.Notice, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	notices, err := n.notices.Drain(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return notices, nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	return n.push(ctx, event, "info", "Ticket '%s' was picked up by an agent.")
}

func (n *NotificationService) handleTicketUnassigned(ctx context.Context, event events.Event) error {
	return n.push(ctx, event, "warning", "Ticket '%s' is waiting for an agent again.")
}

func (n *NotificationService) handleTicketResolved(ctx context.Context, event events.Event) error {
	return n.push(ctx, event, "success", "Ticket '%s' has been resolved.")
}

func (n *NotificationService) push(ctx context.Context, event events.Event, level, format string) error {
	payload, ok := event.Payload.(events.TicketPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	notice := domain.Notice{
		TicketID:  event.TicketID,
		Level:     level,
		Message:   fmt.Sprintf(format, payload.Ticket.Name),
		CreatedAt: n.now().UTC(),
	}
	if err := n.notices.Push(ctx, payload.Ticket.OwnerID, notice); err != nil {
		return err
	}
	n.logger.Debug("notice queued",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("owner_id", payload.Ticket.OwnerID))
	return nil
}
