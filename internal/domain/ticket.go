package domain

import "time"

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateOpen       TicketState = "open"
	TicketStateInProgress TicketState = "in_progress"
	TicketStateClosed     TicketState = "closed"
)

// Valid reports whether s is a known state.
func (s TicketState) Valid() bool {
	switch s {
	case TicketStateOpen, TicketStateInProgress, TicketStateClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// AllTicketStates in lifecycle order.
var AllTicketStates = []TicketState{TicketStateOpen, TicketStateInProgress, TicketStateClosed}

// AllTicketPriorities in ascending urgency.
var AllTicketPriorities = []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh}

// Rank is the position of s in lifecycle order; sorting by state uses it
// rather than the stored string.
func (s TicketState) Rank() int {
	return rankOf(AllTicketStates, s)
}

// Rank is the position of p in ascending urgency.
func (p TicketPriority) Rank() int {
	return rankOf(AllTicketPriorities, p)
}

func rankOf[T comparable](ordered []T, v T) int {
	for i, candidate := range ordered {
		if candidate == v {
			return i
		}
	}
	return len(ordered)
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID              string
	Name            string
	Description     string
	CategoryID      string
	Priority        TicketPriority
	State           TicketState
	OwnerID         string
	AssignedAgentID *string
	CreationDate    time.Time
	ResolutionDate  *time.Time
}

// IsAssigned reports whether an agent holds the ticket.
func (t *Ticket) IsAssigned() bool {
	return t.AssignedAgentID != nil
}

// IsAssignedTo reports whether userID holds the ticket.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedAgentID != nil && *t.AssignedAgentID == userID
}

// Category groups tickets by subject area.
type Category struct {
	ID   string
	Name string
}
