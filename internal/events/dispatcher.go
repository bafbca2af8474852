package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Publish when the bounded queue has no room.
	ErrQueueFull = errors.New("event queue full")
	// ErrDispatcherClosed is returned by Publish after Close.
	ErrDispatcherClosed = errors.New("event dispatcher closed")
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// QueueDispatcher buffers events on a bounded channel and delivers them from Run.
// Publish never blocks.
type QueueDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	queue     chan Event
	closed    bool
	logger    *zap.Logger
}

// NewQueueDispatcher creates a dispatcher holding at most size pending events.
func NewQueueDispatcher(size int, logger *zap.Logger) *QueueDispatcher {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueDispatcher{
		listeners: make(map[EventType][]EventHandler),
		queue:     make(chan Event, size),
		logger:    logger,
	}
}

// Publish enqueues the event for asynchronous delivery.
func (d *QueueDispatcher) Publish(_ context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe registers a handler for the given event type.
func (d *QueueDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Pending reports the number of queued events.
func (d *QueueDispatcher) Pending() int {
	return len(d.queue)
}

// Close stops accepting events. Events already queued are still delivered by Run.
func (d *QueueDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

// Run delivers events until the dispatcher is closed or ctx is cancelled,
// then drains whatever is still queued and returns.
func (d *QueueDispatcher) Run(ctx context.Context) {
	deliveryCtx := context.WithoutCancel(ctx)
	for {
		select {
		case event, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(deliveryCtx, event)
		case <-ctx.Done():
			d.Close()
			for event := range d.queue {
				d.deliver(deliveryCtx, event)
			}
			return
		}
	}
}

func (d *QueueDispatcher) deliver(ctx context.Context, event Event) {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.Int64("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}
