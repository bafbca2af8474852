package dto

import (
	"time"

	"github.com/spec-kit/sla-escalation-service/internal/domain"
	"github.com/spec-kit/sla-escalation-service/internal/service"
)

// TicketIngestItem is one element of the POST /tickets array.
// A client-supplied escalation_level is not read.
type TicketIngestItem struct {
	ID                    *int64                 `json:"id"`
	Priority              *domain.TicketPriority `json:"priority"`
	CustomerTier          *domain.CustomerTier   `json:"customer_tier"`
	Status                *domain.TicketStatus   `json:"status"`
	CreatedAt             *Timestamp             `json:"created_at"`
	UpdatedAt             *Timestamp             `json:"updated_at"`
	ResolvedAt            *Timestamp             `json:"resolved_at"`
	ResponseSLADeadline   *Timestamp             `json:"response_sla_deadline"`
	ResolutionSLADeadline *Timestamp             `json:"resolution_sla_deadline"`
}

// ToSnapshot converts the wire item to the service input.
func (i TicketIngestItem) ToSnapshot() service.TicketSnapshot {
	return service.TicketSnapshot{
		ID:                    i.ID,
		Priority:              i.Priority,
		CustomerTier:          i.CustomerTier,
		Status:                i.Status,
		CreatedAt:             i.CreatedAt.ptr(),
		UpdatedAt:             i.UpdatedAt.ptr(),
		ResolvedAt:            i.ResolvedAt.ptr(),
		ResponseSLADeadline:   i.ResponseSLADeadline.ptr(),
		ResolutionSLADeadline: i.ResolutionSLADeadline.ptr(),
	}
}

// IngestResponse acknowledges a processed batch.
type IngestResponse struct {
	Message string `json:"message"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
}

// TicketStatusResponse is the status view of one ticket.
type TicketStatusResponse struct {
	ID               int64                   `json:"id"`
	Status           domain.TicketStatus     `json:"status"`
	EscalationLevel  *domain.EscalationLevel `json:"escalation_level"`
	RemainingSeconds float64                 `json:"remaining_seconds"`
}

// DashboardResponse is one page of the dashboard.
type DashboardResponse struct {
	Tickets []TicketStatusResponse `json:"tickets"`
	Total   int                    `json:"total"`
}

// EscalationPassResponse summarizes an on-demand escalation pass.
type EscalationPassResponse struct {
	Message   string `json:"message"`
	Evaluated int    `json:"evaluated"`
	Alerts    int    `json:"alerts"`
	Breaches  int    `json:"breaches"`
	Skipped   int    `json:"skipped"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID           int64                   `json:"id"`
	TicketID     int64                   `json:"ticket_id"`
	Priority     domain.TicketPriority   `json:"priority"`
	CustomerTier *domain.CustomerTier    `json:"customer_tier"`
	Status       domain.TicketStatus     `json:"status"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	ChangedAt    time.Time               `json:"changed_at"`
	ChangeType   domain.TicketChangeType `json:"change_type"`
}

// NewTicketStatusResponse maps a service view onto the wire shape.
func NewTicketStatusResponse(view service.StatusView) TicketStatusResponse {
	return TicketStatusResponse{
		ID:               view.ID,
		Status:           view.Status,
		EscalationLevel:  view.EscalationLevel,
		RemainingSeconds: view.RemainingSeconds,
	}
}

// NewTicketHistoryResponse maps an audit entry onto the wire shape.
func NewTicketHistoryResponse(entry domain.TicketHistory) TicketHistoryResponse {
	return TicketHistoryResponse{
		ID:           entry.ID,
		TicketID:     entry.TicketID,
		Priority:     entry.Priority,
		CustomerTier: entry.CustomerTier,
		Status:       entry.Status,
		CreatedAt:    entry.CreatedAt,
		UpdatedAt:    entry.UpdatedAt,
		ChangedAt:    entry.ChangedAt,
		ChangeType:   entry.ChangeType,
	}
}
