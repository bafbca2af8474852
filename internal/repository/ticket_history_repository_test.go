package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-escalation-service/internal/domain"
)

func TestTicketHistoryRepositoryCreate(t *testing.T) {
	mock := newMockPool(t)
	at := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	entry := domain.SnapshotOf(&domain.Ticket{
		ID: 4, Priority: domain.TicketPriorityMedium, Status: domain.TicketStatusOpen, CreatedAt: at, UpdatedAt: at,
	}, domain.ChangeTypeUpdate, at.Add(time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ticket_history")).
		WithArgs(int64(4), "MEDIUM", (*string)(nil), "OPEN", at, at, at.Add(time.Minute), "UPDATE").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(100)))

	require.NoError(t, NewTicketHistoryRepository(mock).Create(context.Background(), entry))
	assert.Equal(t, int64(100), entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketHistoryRepositoryListByTicket(t *testing.T) {
	mock := newMockPool(t)
	at := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{
		"id", "ticket_id", "priority", "customer_tier", "status", "created_at", "updated_at", "changed_at", "change_type",
	}).
		AddRow(int64(1), int64(4), "LOW", strPtr("BRONZE"), "OPEN", at, at, at.Add(time.Minute), "UPDATE").
		AddRow(int64(2), int64(4), "HIGH", (*string)(nil), "ONGOING", at, at.Add(time.Minute), at.Add(2*time.Minute), "UPDATE")
	mock.ExpectQuery(regexp.QuoteMeta("FROM ticket_history WHERE ticket_id=$1")).WithArgs(int64(4)).WillReturnRows(rows)

	entries, err := NewTicketHistoryRepository(mock).ListByTicket(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].CustomerTier)
	assert.Equal(t, domain.CustomerTierBronze, *entries[0].CustomerTier)
	assert.Equal(t, domain.TicketPriorityHigh, entries[1].Priority)
	assert.Equal(t, domain.ChangeTypeUpdate, entries[1].ChangeType)
	require.NoError(t, mock.ExpectationsWereMet())
}
