package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-escalation-service/internal/domain"
	"github.com/spec-kit/sla-escalation-service/internal/events"
	"github.com/spec-kit/sla-escalation-service/internal/observability"
)

const (
	sinkQueue     = "queue"
	sinkWebhook   = "webhook"
	sinkBroadcast = "broadcast"
)

// WebhookSender delivers escalation messages to an external chat webhook.
type WebhookSender interface {
	Enabled() bool
	Send(ctx context.Context, payload events.EscalationPayload) error
}

// Broadcaster pushes a message to every live subscriber.
type Broadcaster interface {
	Broadcast(message []byte) int
}

// NotificationService handles emitting notifications for escalation events.
type NotificationService struct {
	dispatcher events.Dispatcher
	webhook    WebhookSender
	hub        Broadcaster
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NotificationDependencies bundles the sinks and the queue feeding them.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Webhook    WebhookSender
	Hub        Broadcaster
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		webhook:    deps.Webhook,
		hub:        deps.Hub,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// Notify enqueues an escalation for delivery. It never waits on a sink;
// a full queue drops the event and reports it.
func (n *NotificationService) Notify(ctx context.Context, escalation domain.EscalationEvent) error {
	if n.dispatcher == nil {
		return nil
	}
	if err := n.dispatcher.Publish(ctx, events.NewEscalationEvent(escalation)); err != nil {
		n.metrics.RecordNotification(sinkQueue, err)
		observability.LoggerFor(ctx, n.logger).Warn("notification queue full, dropping event",
			zap.Int64("ticket_id", escalation.TicketID),
			zap.String("level", string(escalation.Level)),
			zap.Error(err))
		return err
	}
	n.metrics.RecordNotification(sinkQueue, nil)
	return nil
}

// RegisterHandlers subscribes the sinks to escalation events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSLAAlert, n.handleEscalation)
	n.dispatcher.Subscribe(events.EventSLABreach, n.handleEscalation)
}

func (n *NotificationService) handleEscalation(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EscalationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("delivering escalation notification",
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.Float64("remaining_percent", payload.RemainingPercent))

	n.sendWebhook(ctx, payload)
	n.broadcast(payload)
	return nil
}

func (n *NotificationService) sendWebhook(ctx context.Context, payload events.EscalationPayload) {
	if n.webhook == nil || !n.webhook.Enabled() {
		return
	}
	err := n.webhook.Send(ctx, payload)
	n.metrics.RecordNotification(sinkWebhook, err)
	if err != nil {
		n.logger.Warn("webhook delivery failed", zap.Int64("ticket_id", payload.TicketID), zap.Error(err))
	}
}

func (n *NotificationService) broadcast(payload events.EscalationPayload) {
	if n.hub == nil {
		return
	}
	message, err := json.Marshal(payload)
	if err != nil {
		n.metrics.RecordNotification(sinkBroadcast, err)
		n.logger.Error("failed to encode broadcast payload", zap.Int64("ticket_id", payload.TicketID), zap.Error(err))
		return
	}
	delivered := n.hub.Broadcast(message)
	n.metrics.RecordNotification(sinkBroadcast, nil)
	n.logger.Debug("broadcast sent", zap.Int64("ticket_id", payload.TicketID), zap.Int("subscribers", delivered))
}
