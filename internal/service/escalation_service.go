package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-escalation-service/internal/config"
	"github.com/spec-kit/sla-escalation-service/internal/domain"
	"github.com/spec-kit/sla-escalation-service/internal/observability"
	"github.com/spec-kit/sla-escalation-service/internal/repository"
	apperrors "github.com/spec-kit/sla-escalation-service/pkg/util/errorutil"
)

// ThresholdSource supplies the alert threshold in effect for a pass.
type ThresholdSource interface {
	Current() config.SLAThresholds
}

// Notifier accepts escalations for delivery. Implementations must not block on sinks.
type Notifier interface {
	Notify(ctx context.Context, event domain.EscalationEvent) error
}

// PassResult summarizes one escalation pass.
type PassResult struct {
	Evaluated int
	Alerts    int
	Breaches  int
	Skipped   int
	Events    []domain.EscalationEvent
}

// Evaluation is the outcome of checking one ticket against its resolution deadline.
type Evaluation struct {
	Level            domain.EscalationLevel
	RemainingPercent float64
	RemainingSeconds float64
}

// EscalationService scans open tickets and raises their escalation level.
type EscalationService struct {
	uow        repository.UnitOfWork
	thresholds ThresholdSource
	notifier   Notifier
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	UnitOfWork repository.UnitOfWork
	Thresholds ThresholdSource
	Notifier   Notifier
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Now        func() time.Time
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	svc := &EscalationService{
		uow:        deps.UnitOfWork,
		thresholds: deps.Thresholds,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        deps.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// EvaluateTicket decides the level a ticket is in at now. ok is false when the
// ticket is outside both bands or cannot be evaluated.
func EvaluateTicket(ticket *domain.Ticket, now time.Time, alertThresholdPercent float64) (Evaluation, bool) {
	if ticket.ResolutionSLADeadline.IsZero() {
		return Evaluation{}, false
	}
	createdAt := ticket.CreatedAt.UTC()
	deadline := ticket.ResolutionSLADeadline.UTC()

	remainingSeconds := deadline.Sub(now).Seconds()
	totalWindowSeconds := deadline.Sub(createdAt).Seconds()

	if totalWindowSeconds <= 0 {
		if remainingSeconds <= 0 {
			return Evaluation{Level: domain.EscalationLevelBreach, RemainingPercent: 100, RemainingSeconds: remainingSeconds}, true
		}
		return Evaluation{}, false
	}

	remainingPercent := 100.0 - (remainingSeconds/totalWindowSeconds)*100.0
	available := 100.0 - remainingPercent
	eval := Evaluation{RemainingPercent: remainingPercent, RemainingSeconds: remainingSeconds}

	switch {
	case available <= 0:
		eval.Level = domain.EscalationLevelBreach
	case available <= alertThresholdPercent:
		eval.Level = domain.EscalationLevelAlert
	default:
		return eval, false
	}
	return eval, true
}

// Escalate runs one pass over every open ticket. Level writes share one transaction;
// notifications are handed off only after it commits.
func (s *EscalationService) Escalate(ctx context.Context) (PassResult, error) {
	logger := observability.LoggerFor(ctx, s.logger)
	threshold := s.thresholds.Current().AlertThresholdPercent
	now := s.now().UTC()

	var result PassResult
	err := s.uow.Do(ctx, func(repos repository.Repositories) error {
		result = PassResult{}
		tickets, err := repos.Tickets.ListOpen(ctx)
		if err != nil {
			return err
		}
		logger.Info("escalation pass started", zap.Int("open_tickets", len(tickets)), zap.Float64("alert_threshold_percent", threshold))

		for i := range tickets {
			ticket := &tickets[i]
			result.Evaluated++

			eval, ok := EvaluateTicket(ticket, now, threshold)
			if !ok {
				result.Skipped++
				continue
			}

			current := ticket.CurrentLevel()
			if eval.Level.Rank() < current.Rank() {
				logger.Debug("ticket already at a higher level, not demoting",
					zap.Int64("ticket_id", ticket.ID),
					zap.String("current_level", string(current)))
				result.Skipped++
				continue
			}
			if eval.Level != current {
				if err := repos.Tickets.SetEscalationLevel(ctx, ticket.ID, eval.Level); err != nil {
					return err
				}
			}

			if eval.Level == domain.EscalationLevelBreach {
				result.Breaches++
			} else {
				result.Alerts++
			}
			result.Events = append(result.Events, domain.EscalationEvent{
				Level:            eval.Level,
				TicketID:         ticket.ID,
				RemainingPercent: eval.RemainingPercent,
				OccurredAt:       now,
			})
			logger.Info("ticket escalated",
				zap.Int64("ticket_id", ticket.ID),
				zap.String("level", string(eval.Level)),
				zap.String("previous_level", string(current)),
				zap.Float64("remaining_percent", eval.RemainingPercent))
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordEscalationPass("failed")
		logger.Error("escalation pass failed", zap.Error(err))
		return PassResult{}, apperrors.Classify(err)
	}

	s.metrics.RecordEscalationPass("ok")
	for _, event := range result.Events {
		s.metrics.RecordEscalation(string(event.Level))
		if s.notifier == nil {
			continue
		}
		if err := s.notifier.Notify(ctx, event); err != nil {
			logger.Warn("failed to hand off escalation notification", zap.Int64("ticket_id", event.TicketID), zap.Error(err))
		}
	}

	logger.Info("escalation pass completed",
		zap.Int("evaluated", result.Evaluated),
		zap.Int("alerts", result.Alerts),
		zap.Int("breaches", result.Breaches))
	return result, nil
}
