package domain

import "time"

// Comment is an agent note on a ticket. Comments are never edited.
type Comment struct {
	ID        string
	TicketID  string
	AgentID   string
	Text      string
	CreatedAt time.Time
}

// Attachment stores metadata for a file uploaded to a ticket.
// StorageKey is content addressed, so several rows can share a blob.
type Attachment struct {
	ID         string
	TicketID   string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}

// Notice is a short message queued for a user about one of their tickets.
type Notice struct {
	TicketID  string    `json:"ticket_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
