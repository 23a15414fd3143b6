package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketUpdated    EventType = "ticket_updated"
	EventTicketDeleted    EventType = "ticket_deleted"
	EventTicketAssigned   EventType = "ticket_assigned"
	EventTicketUnassigned EventType = "ticket_unassigned"
	EventTicketResolved   EventType = "ticket_resolved"
	EventCommentAdded     EventType = "comment_added"
)

// TicketEventTypes lists every event that changes ticket aggregates.
var TicketEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketDeleted,
	EventTicketAssigned,
	EventTicketUnassigned,
	EventTicketResolved,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketPayload carries the ticket as it stands after the change. For
// unassign, PreviousAgentID names the agent who released it.
type TicketPayload struct {
	Ticket          domain.Ticket `json:"ticket"`
	PreviousAgentID *string       `json:"previous_agent_id,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AgentID     string `json:"agent_id"`
	TextPreview string `json:"text_preview"`
}
