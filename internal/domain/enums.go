package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Ordinals follow the integer codes used by upstream ticket producers.
var (
	ticketStatuses   = []TicketStatus{TicketStatusOpen, TicketStatusOngoing, TicketStatusClosed}
	ticketPriorities = []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh}
	customerTiers    = []CustomerTier{CustomerTierBronze, CustomerTierSilver, CustomerTierGold, CustomerTierPlatinum}
)

// ParseTicketStatus accepts a status name or its ordinal.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	return parseEnum(raw, ticketStatuses, "status")
}

// ParseTicketPriority accepts a priority name or its ordinal.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	return parseEnum(raw, ticketPriorities, "priority")
}

// ParseCustomerTier accepts a tier name or its ordinal.
func ParseCustomerTier(raw string) (CustomerTier, error) {
	return parseEnum(raw, customerTiers, "customer tier")
}

// UnmarshalJSON accepts "ONGOING" as well as 1.
func (s *TicketStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, ticketStatuses, s, "status")
}

// UnmarshalJSON accepts "HIGH" as well as 2.
func (p *TicketPriority) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, ticketPriorities, p, "priority")
}

// UnmarshalJSON accepts "GOLD" as well as 2.
func (c *CustomerTier) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, customerTiers, c, "customer tier")
}

func parseEnum[T ~string](raw string, ordered []T, kind string) (T, error) {
	raw = strings.TrimSpace(raw)
	if ordinal, err := strconv.Atoi(raw); err == nil {
		if ordinal < 0 || ordinal >= len(ordered) {
			return "", fmt.Errorf("invalid %s %d", kind, ordinal)
		}
		return ordered[ordinal], nil
	}
	candidate := T(strings.ToUpper(raw))
	for _, v := range ordered {
		if v == candidate {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}

func unmarshalEnum[T ~string](data []byte, ordered []T, target *T, kind string) error {
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var ordinal int
		if err := json.Unmarshal(data, &ordinal); err != nil {
			return fmt.Errorf("invalid %s %s", kind, data)
		}
		raw = strconv.Itoa(ordinal)
	}
	parsed, err := parseEnum(raw, ordered, kind)
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}
