package worker

import (
	"context"

	"github.com/spec-kit/sla-escalation-service/internal/events"
	"github.com/spec-kit/sla-escalation-service/internal/service"
)

// StartNotificationWorker registers notification handlers and starts delivering
// queued events. The returned channel closes once the queue has been drained
// after ctx is cancelled.
func StartNotificationWorker(ctx context.Context, dispatcher *events.QueueDispatcher, notificationService *service.NotificationService) <-chan struct{} {
	done := make(chan struct{})
	if dispatcher == nil || notificationService == nil {
		close(done)
		return done
	}
	notificationService.RegisterHandlers()
	go func() {
		defer close(done)
		dispatcher.Run(ctx)
	}()
	return done
}
