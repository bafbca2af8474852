package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CorrelationHeader carries the request correlation id in and out.
const CorrelationHeader = "X-Correlation-ID"

// RequestLogger assigns a correlation id and logs request completion with latency.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := c.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		c.Set(CorrelationHeader, correlationID)
		c.SetUserContext(WithCorrelationID(c.UserContext(), correlationID))

		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("correlation_id", correlationID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("operation", "http_request"),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}
		if ticketID := c.Params("id"); ticketID != "" {
			fields = append(fields, zap.String("ticket_id", ticketID))
		}
		logger.Info("request_completed", fields...)
		metrics.RecordRequest(c.Route().Path, c.Method(), status, latency)
		return err
	}
}
