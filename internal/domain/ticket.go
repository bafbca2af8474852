package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "OPEN"
	TicketStatusOngoing TicketStatus = "ONGOING"
	TicketStatusClosed  TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// CustomerTier enumerates the commercial tier of the requester.
type CustomerTier string

const (
	CustomerTierBronze   CustomerTier = "BRONZE"
	CustomerTierSilver   CustomerTier = "SILVER"
	CustomerTierGold     CustomerTier = "GOLD"
	CustomerTierPlatinum CustomerTier = "PLATINUM"
)

// EscalationLevel is derived urgency state. Only the escalation workflow writes it.
type EscalationLevel string

const (
	EscalationLevelAlert  EscalationLevel = "ALERT"
	EscalationLevelBreach EscalationLevel = "BREACH"
)

// Rank orders levels so transitions can be checked for direction.
func (l EscalationLevel) Rank() int {
	switch l {
	case EscalationLevelAlert:
		return 1
	case EscalationLevelBreach:
		return 2
	default:
		return 0
	}
}

// Ticket is the aggregate tracked against its SLA deadlines.
type Ticket struct {
	ID                    int64
	Priority              TicketPriority
	CustomerTier          *CustomerTier
	Status                TicketStatus
	EscalationLevel       *EscalationLevel
	CreatedAt             time.Time
	UpdatedAt             time.Time
	ResolvedAt            *time.Time
	ResponseSLADeadline   time.Time
	ResolutionSLADeadline time.Time
}

// CurrentLevel returns the escalation level, or the empty level when none was set.
func (t *Ticket) CurrentLevel() EscalationLevel {
	if t.EscalationLevel == nil {
		return ""
	}
	return *t.EscalationLevel
}
