package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-escalation-service/internal/domain"
)

var ticketColumnNames = []string{
	"id", "priority", "customer_tier", "status", "escalation_level", "created_at", "updated_at",
	"resolved_at", "response_sla_deadline", "resolution_sla_deadline",
}

func strPtr(s string) *string { return &s }

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestTicketRepositoryGetByID(t *testing.T) {
	mock := newMockPool(t)
	created := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(ticketColumnNames).AddRow(
		int64(42), "HIGH", strPtr("GOLD"), "OPEN", strPtr("ALERT"), created, created.Add(time.Minute),
		(*time.Time)(nil), created.Add(time.Hour), created.Add(4*time.Hour),
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets WHERE id=$1")).WithArgs(int64(42)).WillReturnRows(rows)

	ticket, err := NewTicketRepository(mock).GetByID(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), ticket.ID)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.NotNil(t, ticket.CustomerTier)
	assert.Equal(t, domain.CustomerTierGold, *ticket.CustomerTier)
	assert.Equal(t, domain.EscalationLevelAlert, ticket.CurrentLevel())
	assert.Nil(t, ticket.ResolvedAt)
	assert.Equal(t, created.Add(4*time.Hour), ticket.ResolutionSLADeadline)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepositoryGetByIDMissing(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets WHERE id=$1")).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(ticketColumnNames))

	_, err := NewTicketRepository(mock).GetByID(context.Background(), 7)
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestTicketRepositoryListOpen(t *testing.T) {
	mock := newMockPool(t)
	at := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(ticketColumnNames).
		AddRow(int64(1), "LOW", (*string)(nil), "OPEN", (*string)(nil), at, at, (*time.Time)(nil), at, at.Add(time.Hour)).
		AddRow(int64(2), "MEDIUM", strPtr("SILVER"), "OPEN", strPtr("BREACH"), at, at, (*time.Time)(nil), at, at.Add(time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status=$1 ORDER BY id")).WithArgs("OPEN").WillReturnRows(rows)

	tickets, err := NewTicketRepository(mock).ListOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Nil(t, tickets[0].EscalationLevel)
	assert.Nil(t, tickets[0].CustomerTier)
	assert.Equal(t, domain.EscalationLevelBreach, tickets[1].CurrentLevel())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepositoryInsert(t *testing.T) {
	mock := newMockPool(t)
	at := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	tier := domain.CustomerTierPlatinum
	ticket := &domain.Ticket{
		ID:                    9,
		Priority:              domain.TicketPriorityLow,
		CustomerTier:          &tier,
		Status:                domain.TicketStatusOpen,
		CreatedAt:             at,
		UpdatedAt:             at,
		ResponseSLADeadline:   at.Add(time.Hour),
		ResolutionSLADeadline: at.Add(2 * time.Hour),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tickets")).
		WithArgs(int64(9), "LOW", strPtr("PLATINUM"), "OPEN", (*string)(nil), at, at, (*time.Time)(nil),
			at.Add(time.Hour), at.Add(2*time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewTicketRepository(mock).Insert(context.Background(), ticket))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepositoryUpdateStateMissingRow(t *testing.T) {
	mock := newMockPool(t)
	at := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tickets SET priority=$1")).
		WithArgs("HIGH", (*string)(nil), "ONGOING", at, at, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewTicketRepository(mock).UpdateState(context.Background(), &domain.Ticket{
		ID: 3, Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOngoing, CreatedAt: at, UpdatedAt: at,
	})
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestTicketRepositorySetEscalationLevel(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tickets SET escalation_level=$1 WHERE id=$2")).
		WithArgs("BREACH", int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewTicketRepository(mock).SetEscalationLevel(context.Background(), 5, domain.EscalationLevelBreach))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepositoryPaginateWithStatus(t *testing.T) {
	mock := newMockPool(t)
	at := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	status := domain.TicketStatusOngoing

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tickets WHERE status=$1")).
		WithArgs("ONGOING").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id LIMIT $2 OFFSET $3")).
		WithArgs("ONGOING", 5, 5).
		WillReturnRows(pgxmock.NewRows(ticketColumnNames).
			AddRow(int64(6), "LOW", (*string)(nil), "ONGOING", (*string)(nil), at, at, (*time.Time)(nil), at, at))

	tickets, total, err := NewTicketRepository(mock).Paginate(context.Background(), &status, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, tickets, 1)
	assert.Equal(t, int64(6), tickets[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepositoryPaginateWithoutStatus(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tickets")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id LIMIT $1 OFFSET $2")).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows(ticketColumnNames))

	tickets, total, err := NewTicketRepository(mock).Paginate(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, tickets)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWorkCommitsOnSuccess(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tickets SET escalation_level=$1 WHERE id=$2")).
		WithArgs("ALERT", int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := NewUnitOfWork(mock).Do(context.Background(), func(repos Repositories) error {
		return repos.Tickets.SetEscalationLevel(context.Background(), 1, domain.EscalationLevelAlert)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWorkRollsBackOnError(t *testing.T) {
	mock := newMockPool(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := NewUnitOfWork(mock).Do(context.Background(), func(Repositories) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWorkRollsBackOnPanic(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = NewUnitOfWork(mock).Do(context.Background(), func(Repositories) error { panic("boom") })
	})
	require.NoError(t, mock.ExpectationsWereMet())
}
