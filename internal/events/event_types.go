package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/sla-escalation-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSLAAlert  EventType = "sla_alert"
	EventSLABreach EventType = "sla_breach"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// EscalationPayload is the body broadcast to live subscribers.
type EscalationPayload struct {
	Event            domain.EscalationLevel `json:"event"`
	TicketID         int64                  `json:"ticket_id"`
	RemainingPercent float64                `json:"remaining_percent"`
}

// TypeForLevel maps an escalation level onto its event type.
func TypeForLevel(level domain.EscalationLevel) EventType {
	if level == domain.EscalationLevelBreach {
		return EventSLABreach
	}
	return EventSLAAlert
}

// NewEscalationEvent wraps an escalation for publication.
func NewEscalationEvent(escalation domain.EscalationEvent) Event {
	ts := escalation.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      TypeForLevel(escalation.Level),
		TicketID:  escalation.TicketID,
		Timestamp: ts,
		Payload: EscalationPayload{
			Event:            escalation.Level,
			TicketID:         escalation.TicketID,
			RemainingPercent: escalation.RemainingPercent,
		},
	}
}
