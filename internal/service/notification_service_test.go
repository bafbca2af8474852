package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/sla-escalation-service/internal/domain"
	"github.com/spec-kit/sla-escalation-service/internal/events"
	"github.com/spec-kit/sla-escalation-service/internal/observability"
)

type fakeWebhook struct {
	mu    sync.Mutex
	sent  []events.EscalationPayload
	err   error
	calls int
}

func (w *fakeWebhook) Enabled() bool { return true }

func (w *fakeWebhook) Send(_ context.Context, payload events.EscalationPayload) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.sent = append(w.sent, payload)
	return nil
}

func (w *fakeWebhook) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages [][]byte
}

func (b *fakeBroadcaster) Broadcast(message []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
	return 1
}

func (b *fakeBroadcaster) received() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.messages...)
}

func startDispatcher(t *testing.T, size int) *events.QueueDispatcher {
	t.Helper()
	dispatcher := events.NewQueueDispatcher(size, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return dispatcher
}

func TestNotifyDeliversToWebhookAndBroadcast(t *testing.T) {
	dispatcher := startDispatcher(t, 8)
	webhook := &fakeWebhook{}
	hub := &fakeBroadcaster{}
	svc := NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher, Webhook: webhook, Hub: hub,
		Logger: zaptest.NewLogger(t), Metrics: observability.NewMetrics(),
	})
	svc.RegisterHandlers()

	require.NoError(t, svc.Notify(context.Background(), domain.EscalationEvent{
		Level: domain.EscalationLevelAlert, TicketID: 5, RemainingPercent: 86,
	}))

	require.Eventually(t, func() bool { return len(hub.received()) == 1 }, time.Second, 5*time.Millisecond)

	var body map[string]any
	require.NoError(t, json.Unmarshal(hub.received()[0], &body))
	assert.Equal(t, map[string]any{"event": "ALERT", "ticket_id": float64(5), "remaining_percent": float64(86)}, body)
	assert.Equal(t, 1, webhook.callCount())
}

func TestWebhookFailureDoesNotBlockBroadcast(t *testing.T) {
	dispatcher := startDispatcher(t, 8)
	webhook := &fakeWebhook{err: errors.New("connection refused")}
	hub := &fakeBroadcaster{}
	svc := NewNotificationService(NotificationDependencies{Dispatcher: dispatcher, Webhook: webhook, Hub: hub, Logger: zaptest.NewLogger(t)})
	svc.RegisterHandlers()

	require.NoError(t, svc.Notify(context.Background(), domain.EscalationEvent{Level: domain.EscalationLevelBreach, TicketID: 1}))
	require.NoError(t, svc.Notify(context.Background(), domain.EscalationEvent{Level: domain.EscalationLevelBreach, TicketID: 2}))

	assert.Eventually(t, func() bool { return len(hub.received()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, webhook.callCount())
}

func TestNotifyDropsWhenQueueFull(t *testing.T) {
	// not running: nothing drains the queue
	dispatcher := events.NewQueueDispatcher(1, zaptest.NewLogger(t))
	svc := NewNotificationService(NotificationDependencies{Dispatcher: dispatcher, Logger: zaptest.NewLogger(t)})

	require.NoError(t, svc.Notify(context.Background(), domain.EscalationEvent{TicketID: 1, Level: domain.EscalationLevelAlert}))
	err := svc.Notify(context.Background(), domain.EscalationEvent{TicketID: 2, Level: domain.EscalationLevelAlert})
	require.ErrorIs(t, err, events.ErrQueueFull)
}
