package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartNotificationWorker registers the event subscribers that keep owner
// inboxes and cached dashboards in step with ticket changes.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService, dashboards *service.DashboardService) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if dashboards != nil {
		dashboards.RegisterInvalidation(dispatcher)
	}
}
