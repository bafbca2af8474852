package repository

import (
	"context"

	"github.com/spec-kit/sla-escalation-service/internal/domain"
)

// TicketHistoryRepository stores audit entries. Entries are append-only.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	db DBTX
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(db DBTX) TicketHistoryRepository {
	return &ticketHistoryRepository{db: db}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, priority, customer_tier, status, created_at, updated_at, changed_at, change_type)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		history.TicketID,
		string(history.Priority),
		tierArg(history.CustomerTier),
		string(history.Status),
		history.CreatedAt,
		history.UpdatedAt,
		history.ChangedAt,
		string(history.ChangeType),
	).Scan(&history.ID)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, priority, customer_tier, status, created_at, updated_at, changed_at, change_type
        FROM ticket_history WHERE ticket_id=$1 ORDER BY changed_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var (
			history    domain.TicketHistory
			priority   string
			tier       *string
			status     string
			changeType string
		)
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&priority,
			&tier,
			&status,
			&history.CreatedAt,
			&history.UpdatedAt,
			&history.ChangedAt,
			&changeType,
		); err != nil {
			return nil, err
		}
		history.Priority = domain.TicketPriority(priority)
		history.Status = domain.TicketStatus(status)
		history.ChangeType = domain.TicketChangeType(changeType)
		if tier != nil {
			value := domain.CustomerTier(*tier)
			history.CustomerTier = &value
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
