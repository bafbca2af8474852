package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-escalation-service/internal/notification"
)

// AlertsHandler streams escalation broadcasts to websocket subscribers.
type AlertsHandler struct {
	hub    *notification.Hub
	logger *zap.Logger
}

// NewAlertsHandler constructs handler.
func NewAlertsHandler(hub *notification.Hub, logger *zap.Logger) *AlertsHandler {
	return &AlertsHandler{hub: hub, logger: logger}
}

// RequireUpgrade rejects plain HTTP requests to the websocket route.
func (h *AlertsHandler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream GET /ws/alerts.
func (h *AlertsHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sub, err := h.hub.Register(conn)
		if err != nil {
			h.logger.Warn("ws subscriber rejected", zap.Error(err))
			return
		}
		// Inbound frames are ignored; reading surfaces the client going away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.hub.Unregister(sub)
		<-sub.Done()
	})
}
