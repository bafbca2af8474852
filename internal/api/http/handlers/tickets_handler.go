package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-escalation-service/internal/api/dto"
	"github.com/spec-kit/sla-escalation-service/internal/domain"
	"github.com/spec-kit/sla-escalation-service/internal/service"
	apperrors "github.com/spec-kit/sla-escalation-service/pkg/util/errorutil"
)

// TicketIngester merges producer snapshots into the store.
type TicketIngester interface {
	Ingest(ctx context.Context, batch []service.TicketSnapshot) (service.IngestResult, error)
}

// PassRunner runs an escalation pass on demand.
type PassRunner interface {
	Escalate(ctx context.Context) (service.PassResult, error)
}

// TicketReader serves read-only views.
type TicketReader interface {
	GetStatusView(ctx context.Context, id int64) (*service.StatusView, error)
	GetPaginatedView(ctx context.Context, status *domain.TicketStatus, page, pageSize int) (*service.PaginatedView, error)
	GetHistory(ctx context.Context, id int64) ([]domain.TicketHistory, error)
}

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	ingester  TicketIngester
	escalator PassRunner
	reader    TicketReader
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ingester TicketIngester, escalator PassRunner, reader TicketReader) *TicketsHandler {
	return &TicketsHandler{ingester: ingester, escalator: escalator, reader: reader}
}

// Ingest POST /tickets.
func (h *TicketsHandler) Ingest(c *fiber.Ctx) error {
	var items []dto.TicketIngestItem
	if err := c.BodyParser(&items); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	batch := make([]service.TicketSnapshot, 0, len(items))
	for _, item := range items {
		batch = append(batch, item.ToSnapshot())
	}
	result, err := h.ingester.Ingest(c.UserContext(), batch)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.IngestResponse{
		Message: "Tickets processed",
		Created: result.Created,
		Updated: result.Updated,
		Skipped: result.Skipped,
	})
}

// Escalate POST /tickets/escalate.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	result, err := h.escalator.Escalate(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.EscalationPassResponse{
		Message:   "Workflow escalated",
		Evaluated: result.Evaluated,
		Alerts:    result.Alerts,
		Breaches:  result.Breaches,
		Skipped:   result.Skipped,
	})
}

// Dashboard GET /tickets/dashboard.
func (h *TicketsHandler) Dashboard(c *fiber.Ctx) error {
	var status *domain.TicketStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
		}
		status = &parsed
	}
	page, err := queryInt(c, "page", service.DefaultPage)
	if err != nil {
		return err
	}
	pageSize, err := queryInt(c, "page_size", service.DefaultPageSize)
	if err != nil {
		return err
	}

	view, err := h.reader.GetPaginatedView(c.UserContext(), status, page, pageSize)
	if err != nil {
		return err
	}
	tickets := make([]dto.TicketStatusResponse, 0, len(view.Tickets))
	for _, t := range view.Tickets {
		tickets = append(tickets, dto.NewTicketStatusResponse(t))
	}
	return c.JSON(dto.DashboardResponse{Tickets: tickets, Total: view.Total})
}

// GetStatus GET /tickets/:id.
func (h *TicketsHandler) GetStatus(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	view, err := h.reader.GetStatusView(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketStatusResponse(*view))
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	entries, err := h.reader.GetHistory(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewTicketHistoryResponse(entry))
	}
	return c.JSON(fiber.Map{"data": items})
}

func ticketID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("ticket id must be an integer", map[string]any{"id": raw})
	}
	return id, nil
}

func queryInt(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(key+" must be an integer", map[string]any{key: raw})
	}
	return value, nil
}
