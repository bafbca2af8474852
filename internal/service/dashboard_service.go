package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-escalation-service/internal/domain"
	"github.com/spec-kit/sla-escalation-service/internal/observability"
	"github.com/spec-kit/sla-escalation-service/internal/repository"
	apperrors "github.com/spec-kit/sla-escalation-service/pkg/util/errorutil"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// StatusView is the read model returned for a single ticket.
type StatusView struct {
	ID               int64
	Status           domain.TicketStatus
	EscalationLevel  *domain.EscalationLevel
	RemainingSeconds float64
}

// PaginatedView is one dashboard page.
type PaginatedView struct {
	Tickets []StatusView
	Total   int
}

// DashboardService serves read-only ticket views.
type DashboardService struct {
	repos  repository.Repositories
	logger *zap.Logger
	now    func() time.Time
}

// DashboardDependencies bundles collaborators for the dashboard service.
type DashboardDependencies struct {
	Repositories repository.Repositories
	Logger       *zap.Logger
	Now          func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	svc := &DashboardService{repos: deps.Repositories, logger: deps.Logger, now: deps.Now}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// GetStatusView returns the status, level and seconds left until the resolution deadline.
func (s *DashboardService) GetStatusView(ctx context.Context, id int64) (*StatusView, error) {
	ticket, err := s.repos.Tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(ctx, id, err)
	}
	view := s.viewOf(ticket)
	return &view, nil
}

// GetPaginatedView returns one page of tickets, optionally filtered by status.
func (s *DashboardService) GetPaginatedView(ctx context.Context, status *domain.TicketStatus, page, pageSize int) (*PaginatedView, error) {
	if page < 1 {
		return nil, apperrors.NewValidationError("page must be >= 1", map[string]any{"page": page})
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, apperrors.NewValidationError("page_size must be between 1 and 100", map[string]any{"page_size": pageSize})
	}

	tickets, total, err := s.repos.Tickets.Paginate(ctx, status, page, pageSize)
	if err != nil {
		observability.LoggerFor(ctx, s.logger).Error("dashboard query failed", zap.Error(err))
		return nil, apperrors.NewDatabaseError(err)
	}

	views := make([]StatusView, 0, len(tickets))
	for i := range tickets {
		views = append(views, s.viewOf(&tickets[i]))
	}
	return &PaginatedView{Tickets: views, Total: total}, nil
}

// GetHistory returns the audit trail of a ticket, oldest first.
func (s *DashboardService) GetHistory(ctx context.Context, id int64) ([]domain.TicketHistory, error) {
	if _, err := s.repos.Tickets.GetByID(ctx, id); err != nil {
		return nil, s.lookupError(ctx, id, err)
	}
	entries, err := s.repos.History.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return entries, nil
}

func (s *DashboardService) viewOf(ticket *domain.Ticket) StatusView {
	var remaining float64
	if !ticket.ResolutionSLADeadline.IsZero() {
		remaining = ticket.ResolutionSLADeadline.UTC().Sub(s.now().UTC()).Seconds()
	}
	return StatusView{
		ID:               ticket.ID,
		Status:           ticket.Status,
		EscalationLevel:  ticket.EscalationLevel,
		RemainingSeconds: remaining,
	}
}

func (s *DashboardService) lookupError(ctx context.Context, id int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		observability.LoggerFor(ctx, s.logger).Warn("ticket not found", zap.Int64("ticket_id", id))
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return apperrors.NewDatabaseError(err)
}
