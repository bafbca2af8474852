package domain

import "time"

// TicketChangeType captures what produced a history entry.
type TicketChangeType string

const (
	ChangeTypeUpdate TicketChangeType = "UPDATE"
)

// TicketHistory is an immutable snapshot of a ticket taken before it was overwritten.
type TicketHistory struct {
	ID           int64
	TicketID     int64
	Priority     TicketPriority
	CustomerTier *CustomerTier
	Status       TicketStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ChangedAt    time.Time
	ChangeType   TicketChangeType
}

// SnapshotOf copies the audited fields of ticket into a new history entry.
func SnapshotOf(ticket *Ticket, changeType TicketChangeType, changedAt time.Time) *TicketHistory {
	entry := &TicketHistory{
		TicketID:   ticket.ID,
		Priority:   ticket.Priority,
		Status:     ticket.Status,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
		ChangedAt:  changedAt,
		ChangeType: changeType,
	}
	if ticket.CustomerTier != nil {
		tier := *ticket.CustomerTier
		entry.CustomerTier = &tier
	}
	return entry
}
