package notification

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-escalation-service/internal/observability"
)

const writeWait = 10 * time.Second

// ErrHubClosed is returned by Register once the hub has been closed.
var ErrHubClosed = errors.New("subscriber hub closed")

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscriber is one live connection with its own outbox and write pump.
type Subscriber struct {
	id   string
	conn Conn
	send chan []byte
	done chan struct{}
}

// ID identifies the subscriber in logs.
func (s *Subscriber) ID() string { return s.id }

// Done is closed once the write pump has exited and the connection was closed.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Hub is the registry of live subscribers. Broadcast never blocks on a subscriber.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	buffer      int
	closed      bool
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewHub creates a hub giving every subscriber an outbox of buffer messages.
func NewHub(buffer int, logger *zap.Logger, metrics *observability.Metrics) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		buffer:      buffer,
		logger:      logger,
		metrics:     metrics,
	}
}

// Register adds conn to the hub and starts its write pump.
func (h *Hub) Register(conn Conn) (*Subscriber, error) {
	sub := &Subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.buffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.metrics.SetSubscribers(count)
	h.logger.Info("subscriber connected", zap.String("subscriber_id", sub.id), zap.Int("subscribers", count))

	go h.writePump(sub)
	return sub, nil
}

// Unregister removes sub and closes its outbox. Safe to call more than once.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subscribers, sub)
	close(sub.send)
	count := len(h.subscribers)
	h.mu.Unlock()

	h.metrics.SetSubscribers(count)
	h.logger.Info("subscriber disconnected", zap.String("subscriber_id", sub.id), zap.Int("subscribers", count))
}

// Broadcast queues message for every subscriber and returns how many accepted it.
// Subscribers whose outbox is full are dropped.
func (h *Hub) Broadcast(message []byte) int {
	var (
		delivered int
		slow      []*Subscriber
	)

	h.mu.RLock()
	for sub := range h.subscribers {
		select {
		case sub.send <- message:
			delivered++
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("dropping slow subscriber", zap.String("subscriber_id", sub.id))
		h.Unregister(sub)
	}
	return delivered
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.Unregister(sub)
	}
}

func (h *Hub) writePump(sub *Subscriber) {
	defer func() {
		if err := sub.conn.Close(); err != nil {
			h.logger.Debug("failed to close subscriber connection", zap.String("subscriber_id", sub.id), zap.Error(err))
		}
		close(sub.done)
	}()

	for message := range sub.send {
		if err := sub.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			h.logger.Warn("failed to set write deadline", zap.String("subscriber_id", sub.id), zap.Error(err))
			h.Unregister(sub)
			break
		}
		if err := sub.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warn("failed to write to subscriber", zap.String("subscriber_id", sub.id), zap.Error(err))
			h.Unregister(sub)
			break
		}
	}

	_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
