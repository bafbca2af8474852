package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-escalation-service/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListOpen(ctx context.Context) ([]domain.Ticket, error)
	Insert(ctx context.Context, ticket *domain.Ticket) error
	UpdateState(ctx context.Context, ticket *domain.Ticket) error
	SetEscalationLevel(ctx context.Context, id int64, level domain.EscalationLevel) error
	Paginate(ctx context.Context, status *domain.TicketStatus, page, pageSize int) ([]domain.Ticket, int, error)
}

const ticketColumns = `id, priority, customer_tier, status, escalation_level, created_at, updated_at,
               resolved_at, response_sla_deadline, resolution_sla_deadline`

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE status=$1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, string(domain.TicketStatusOpen))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, priority, customer_tier, status, escalation_level, created_at, updated_at,
            resolved_at, response_sla_deadline, resolution_sla_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.db.Exec(ctx, query,
		ticket.ID,
		string(ticket.Priority),
		tierArg(ticket.CustomerTier),
		string(ticket.Status),
		levelArg(ticket.EscalationLevel),
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
		ticket.ResponseSLADeadline,
		ticket.ResolutionSLADeadline,
	)
	return err
}

// UpdateState overwrites the producer-owned fields. Escalation level and deadlines are left alone.
func (r *ticketRepository) UpdateState(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET priority=$1, customer_tier=$2, status=$3, created_at=$4, updated_at=$5
        WHERE id=$6`
	cmd, err := r.db.Exec(ctx, query,
		string(ticket.Priority),
		tierArg(ticket.CustomerTier),
		string(ticket.Status),
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) SetEscalationLevel(ctx context.Context, id int64, level domain.EscalationLevel) error {
	cmd, err := r.db.Exec(ctx, `UPDATE tickets SET escalation_level=$1 WHERE id=$2`, string(level), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Paginate(ctx context.Context, status *domain.TicketStatus, page, pageSize int) ([]domain.Ticket, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	where := ""
	args := []any{}
	if status != nil {
		args = append(args, string(*status))
		where = fmt.Sprintf(" WHERE status=$%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM tickets%s ORDER BY id LIMIT $%d OFFSET $%d`,
		ticketColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, int(total), nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		priority string
		status   string
		tier     *string
		level    *string
		resolved *time.Time
	)
	if err := row.Scan(
		&ticket.ID,
		&priority,
		&tier,
		&status,
		&level,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&resolved,
		&ticket.ResponseSLADeadline,
		&ticket.ResolutionSLADeadline,
	); err != nil {
		return nil, err
	}
	ticket.Priority = domain.TicketPriority(priority)
	ticket.Status = domain.TicketStatus(status)
	if tier != nil {
		value := domain.CustomerTier(*tier)
		ticket.CustomerTier = &value
	}
	if level != nil {
		value := domain.EscalationLevel(*level)
		ticket.EscalationLevel = &value
	}
	if resolved != nil {
		at := resolved.UTC()
		ticket.ResolvedAt = &at
	}
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	ticket.UpdatedAt = ticket.UpdatedAt.UTC()
	ticket.ResponseSLADeadline = ticket.ResponseSLADeadline.UTC()
	ticket.ResolutionSLADeadline = ticket.ResolutionSLADeadline.UTC()
	return &ticket, nil
}

func tierArg(tier *domain.CustomerTier) *string {
	if tier == nil {
		return nil
	}
	value := string(*tier)
	return &value
}

func levelArg(level *domain.EscalationLevel) *string {
	if level == nil {
		return nil
	}
	value := string(*level)
	return &value
}
