package domain

import "time"

// EscalationEvent is emitted by the escalation workflow for every ticket it escalates.
type EscalationEvent struct {
	Level            EscalationLevel
	TicketID         int64
	RemainingPercent float64
	OccurredAt       time.Time
}
