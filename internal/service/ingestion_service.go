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

// TicketSnapshot is one ticket state reported by an upstream producer.
// Absent fields are nil.
type TicketSnapshot struct {
	ID                    *int64
	Priority              *domain.TicketPriority
	CustomerTier          *domain.CustomerTier
	Status                *domain.TicketStatus
	CreatedAt             *time.Time
	UpdatedAt             *time.Time
	ResolvedAt            *time.Time
	ResponseSLADeadline   *time.Time
	ResolutionSLADeadline *time.Time
}

// IngestResult counts what a batch did to the store.
type IngestResult struct {
	Created int
	Updated int
	Skipped int
}

// IngestionService merges producer snapshots into the ticket store.
type IngestionService struct {
	uow     repository.UnitOfWork
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// IngestionDependencies bundles collaborators for the ingestion service.
type IngestionDependencies struct {
	UnitOfWork repository.UnitOfWork
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Now        func() time.Time
}

// NewIngestionService constructs the service.
func NewIngestionService(deps IngestionDependencies) *IngestionService {
	svc := &IngestionService{
		uow:     deps.UnitOfWork,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		now:     deps.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Ingest applies the batch in a single transaction. Any failure rolls back every item.
func (s *IngestionService) Ingest(ctx context.Context, batch []TicketSnapshot) (IngestResult, error) {
	logger := observability.LoggerFor(ctx, s.logger)
	logger.Info("ingesting ticket batch", zap.Int("size", len(batch)))

	var result IngestResult
	err := s.uow.Do(ctx, func(repos repository.Repositories) error {
		result = IngestResult{}
		for i := range batch {
			outcome, err := s.ingestOne(ctx, repos, i, &batch[i], logger)
			if err != nil {
				return err
			}
			switch outcome {
			case outcomeCreated:
				result.Created++
			case outcomeUpdated:
				result.Updated++
			default:
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		if !apperrors.IsDomainError(err) {
			err = apperrors.NewDatabaseError(err)
		}
		logger.Warn("ticket batch rolled back", zap.Error(err))
		return IngestResult{}, err
	}

	s.metrics.RecordIngest(result.Created, result.Updated, result.Skipped)
	logger.Info("ticket batch committed",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

type ingestOutcome int

const (
	outcomeSkipped ingestOutcome = iota
	outcomeCreated
	outcomeUpdated
)

func (s *IngestionService) ingestOne(ctx context.Context, repos repository.Repositories, index int, snap *TicketSnapshot, logger *zap.Logger) (ingestOutcome, error) {
	if snap.ID == nil {
		return outcomeSkipped, apperrors.NewValidationError("ticket id is required", map[string]any{"index": index})
	}
	id := *snap.ID
	now := normalizeTimestamp(s.now())

	updatedAt := now
	if snap.UpdatedAt != nil {
		updatedAt = normalizeTimestamp(*snap.UpdatedAt)
	}

	existing, err := repos.Tickets.GetByID(ctx, id)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return outcomeSkipped, apperrors.NewDatabaseError(err)
	}

	if existing == nil {
		ticket, err := newTicketFromSnapshot(index, snap, updatedAt, now)
		if err != nil {
			return outcomeSkipped, err
		}
		if err := repos.Tickets.Insert(ctx, ticket); err != nil {
			return outcomeSkipped, apperrors.NewDatabaseError(err)
		}
		logger.Debug("ticket created", zap.Int64("ticket_id", id))
		return outcomeCreated, nil
	}

	if snap.UpdatedAt == nil {
		return outcomeSkipped, apperrors.NewValidationError("updated_at is required to update an existing ticket",
			map[string]any{"index": index, "ticket_id": id})
	}
	if sameSecond(existing.UpdatedAt, updatedAt) {
		logger.Debug("ticket unchanged, skipping", zap.Int64("ticket_id", id))
		return outcomeSkipped, nil
	}

	if err := repos.History.Create(ctx, domain.SnapshotOf(existing, domain.ChangeTypeUpdate, now)); err != nil {
		return outcomeSkipped, apperrors.NewDatabaseError(err)
	}

	updated := *existing
	if snap.Priority != nil {
		updated.Priority = *snap.Priority
	}
	if snap.Status != nil {
		updated.Status = *snap.Status
	}
	if snap.CreatedAt != nil {
		updated.CreatedAt = normalizeTimestamp(*snap.CreatedAt)
	}
	updated.UpdatedAt = updatedAt
	updated.CustomerTier = snap.CustomerTier

	if err := repos.Tickets.UpdateState(ctx, &updated); err != nil {
		return outcomeSkipped, apperrors.NewDatabaseError(err)
	}
	logger.Debug("ticket updated", zap.Int64("ticket_id", id))
	return outcomeUpdated, nil
}

func newTicketFromSnapshot(index int, snap *TicketSnapshot, updatedAt, now time.Time) (*domain.Ticket, error) {
	if snap.ResponseSLADeadline == nil || snap.ResolutionSLADeadline == nil {
		return nil, apperrors.NewValidationError("new tickets require response and resolution SLA deadlines",
			map[string]any{"index": index, "ticket_id": *snap.ID})
	}
	ticket := &domain.Ticket{
		ID:                    *snap.ID,
		Priority:              domain.TicketPriorityLow,
		Status:                domain.TicketStatusOpen,
		CustomerTier:          snap.CustomerTier,
		CreatedAt:             now,
		UpdatedAt:             updatedAt,
		ResponseSLADeadline:   normalizeTimestamp(*snap.ResponseSLADeadline),
		ResolutionSLADeadline: normalizeTimestamp(*snap.ResolutionSLADeadline),
	}
	if snap.Priority != nil {
		ticket.Priority = *snap.Priority
	}
	if snap.Status != nil {
		ticket.Status = *snap.Status
	}
	if snap.CreatedAt != nil {
		ticket.CreatedAt = normalizeTimestamp(*snap.CreatedAt)
	}
	if snap.ResolvedAt != nil {
		resolved := normalizeTimestamp(*snap.ResolvedAt)
		ticket.ResolvedAt = &resolved
	}
	return ticket, nil
}

// normalizeTimestamp matches the precision the store keeps.
func normalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func sameSecond(a, b time.Time) bool {
	return a.UTC().Truncate(time.Second).Equal(b.UTC().Truncate(time.Second))
}
