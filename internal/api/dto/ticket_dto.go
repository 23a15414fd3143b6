package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketRequest is the create and edit payload.
type TicketRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	CategoryID  string                `json:"category_id"`
	Priority    domain.TicketPriority `json:"priority"`
}

// TicketResponse is the public view of a ticket.
type TicketResponse struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	CategoryID      string                `json:"category_id"`
	Priority        domain.TicketPriority `json:"priority"`
	State           domain.TicketState    `json:"state"`
	OwnerID         string                `json:"owner_id"`
	AssignedAgentID *string               `json:"assigned_agent_id"`
	CreationDate    time.Time             `json:"creation_date"`
	ResolutionDate  *time.Time            `json:"resolution_date"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              t.ID,
		Name:            t.Name,
		Description:     t.Description,
		CategoryID:      t.CategoryID,
		Priority:        t.Priority,
		State:           t.State,
		OwnerID:         t.OwnerID,
		AssignedAgentID: t.AssignedAgentID,
		CreationDate:    t.CreationDate,
		ResolutionDate:  t.ResolutionDate,
	}
}

// NewTicketList maps a slice of tickets.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// PageMeta describes the page returned by a list endpoint.
type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// DecisionResponse renders one policy decision.
type DecisionResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func newDecision(d policy.Decision) DecisionResponse {
	return DecisionResponse{Allowed: d.Allowed, Reason: d.Reason}
}

// PermissionsResponse is the decision set a client uses to render controls.
type PermissionsResponse struct {
	View     DecisionResponse `json:"view"`
	Edit     DecisionResponse `json:"edit"`
	Delete   DecisionResponse `json:"delete"`
	Assign   DecisionResponse `json:"assign"`
	Unassign DecisionResponse `json:"unassign"`
	Resolve  DecisionResponse `json:"resolve"`
	Comment  DecisionResponse `json:"comment"`
}

// NewPermissionsResponse maps a decision set.
func NewPermissionsResponse(p policy.TicketPermissions) PermissionsResponse {
	return PermissionsResponse{
		View:     newDecision(p.View),
		Edit:     newDecision(p.Edit),
		Delete:   newDecision(p.Delete),
		Assign:   newDecision(p.Assign),
		Unassign: newDecision(p.Unassign),
		Resolve:  newDecision(p.Resolve),
		Comment:  newDecision(p.Comment),
	}
}

// WarningResponse is a non-fatal problem reported next to a result.
type WarningResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewWarnings maps domain errors raised as warnings.
func NewWarnings(warnings []*apperrors.DomainError) []WarningResponse {
	out := make([]WarningResponse, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, WarningResponse{Code: w.Code, Message: w.Message, Details: w.Details})
	}
	return out
}

// CommentRequest payload.
type CommentRequest struct {
	Text string `json:"text"`
}

// CommentResponse is one entry of the comment log.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AgentID   string    `json:"agent_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{ID: c.ID, TicketID: c.TicketID, AgentID: c.AgentID, Text: c.Text, CreatedAt: c.CreatedAt}
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAttachmentResponse maps an attachment and its download path.
func NewAttachmentResponse(a *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        a.ID,
		TicketID:  a.TicketID,
		FileName:  a.FileName,
		MimeType:  a.MimeType,
		SizeBytes: a.SizeBytes,
		URL:       "/attachments/" + a.ID,
		CreatedAt: a.CreatedAt,
	}
}

// CategoryRequest payload.
type CategoryRequest struct {
	Name string `json:"name"`
}

// CategoryResponse is a category.
type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
