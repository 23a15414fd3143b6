package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	maxTicketNameLength = 100
	defaultPageSize     = 10
	maxPageSize         = 100
)

// CategoryReader resolves categories for ticket validation.
type CategoryReader interface {
	Get(ctx context.Context, id string) (*domain.Category, error)
}

// BlobReleaser frees attachment blobs once nothing references them.
type BlobReleaser interface {
	StorageKeys(ctx context.Context, ticketID string) ([]string, error)
	Release(ctx context.Context, keys []string) error
}

// TicketService owns the ticket lifecycle. Every check reads the ticket,
// consults policy and then writes with a conditional statement, so a
// concurrent change between the read and the write surfaces as NotFound.
type TicketService struct {
	tickets       repository.TicketRepository
	comments      repository.CommentRepository
	users         repository.UserRepository
	categories    CategoryReader
	blobs         BlobReleaser
	sender        notify.Sender
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	notifyTimeout time.Duration
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	CommentRepo   repository.CommentRepository
	UserRepo      repository.UserRepository
	Categories    CategoryReader
	Blobs         BlobReleaser
	Sender        notify.Sender
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	NotifyTimeout time.Duration
}

// TicketInput is the editable part of a ticket.
type TicketInput struct {
	Name        string
	Description string
	CategoryID  string
	Priority    domain.TicketPriority
}

// ListQuery selects a page of tickets.
type ListQuery struct {
	Scope    policy.Scope
	Priority string
	State    string
	SortBy   string
	Page     int
	PageSize int
}

// TicketPage is one page of a list result.
type TicketPage struct {
	Items    []domain.Ticket
	Page     int
	PageSize int
	Total    int
}

// ResolveResult carries the closed ticket and any delivery warnings.
type ResolveResult struct {
	Ticket   *domain.Ticket
	Warnings []*apperrors.DomainError
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.NotifyTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TicketService{
		tickets:       deps.TicketRepo,
		comments:      deps.CommentRepo,
		users:         deps.UserRepo,
		categories:    deps.Categories,
		blobs:         deps.Blobs,
		sender:        deps.Sender,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		notifyTimeout: timeout,
	}
}

// Create files a new open ticket owned by actor.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketInput) (*domain.Ticket, error) {
	if err := policy.CanCreate(actor).Err(); err != nil {
		return nil, err
	}
	input, err := s.validateInput(ctx, input)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Name:        input.Name,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Priority:    input.Priority,
		State:       domain.TicketStateOpen,
		OwnerID:     actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTransition("create")
	s.publish(ctx, events.EventTicketCreated, actor, ticket, nil)
	return ticket, nil
}

// Get returns a ticket the actor may see.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanView(actor, ticket).Err(); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Permissions returns every decision for the ticket, for rendering controls.
func (s *TicketService) Permissions(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, policy.TicketPermissions, error) {
	ticket, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, policy.TicketPermissions{}, err
	}
	return ticket, policy.Evaluate(actor, ticket), nil
}

// Edit changes the fields of an unassigned ticket owned by actor.
func (s *TicketService) Edit(ctx context.Context, actor *domain.User, id string, input TicketInput) (*domain.Ticket, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanEditOrDelete(actor, current).Err(); err != nil {
		return nil, err
	}
	input, err = s.validateInput(ctx, input)
	if err != nil {
		return nil, err
	}

	updated, err := s.tickets.UpdateUnassigned(ctx, &domain.Ticket{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Priority:    input.Priority,
	}, actor.ID)
	if err != nil {
		return nil, ticketError(err, id)
	}

	s.metrics.RecordTransition("edit")
	s.publish(ctx, events.EventTicketUpdated, actor, updated, nil)
	return updated, nil
}

// Delete removes an unassigned ticket owned by actor together with its
// comments and attachments.
func (s *TicketService) Delete(ctx context.Context, actor *domain.User, id string) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.CanEditOrDelete(actor, current).Err(); err != nil {
		return err
	}

	var keys []string
	if s.blobs != nil {
		if keys, err = s.blobs.StorageKeys(ctx, id); err != nil {
			return apperrors.MapError(err)
		}
	}

	if err := s.tickets.DeleteUnassigned(ctx, id, actor.ID); err != nil {
		return ticketError(err, id)
	}

	if s.blobs != nil && len(keys) > 0 {
		if err := s.blobs.Release(ctx, keys); err != nil {
			s.logger.Warn("attachment cleanup failed", zap.String("ticket_id", id), zap.Error(err))
		}
	}

	s.metrics.RecordTransition("delete")
	s.publish(ctx, events.EventTicketDeleted, actor, current, nil)
	return nil
}

// Assign lets an agent take an unassigned ticket. Of two concurrent
// callers exactly one wins; the other gets NotFound.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	if err := policy.CanAssign(actor, nil).Err(); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanAssign(actor, current).Err(); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.Assign(ctx, id, actor.ID)
	if err != nil {
		return nil, ticketError(err, id)
	}

	s.metrics.RecordTransition("assign")
	s.publish(ctx, events.EventTicketAssigned, actor, ticket, nil)
	return ticket, nil
}

// Unassign returns an in-progress ticket to the open pool.
func (s *TicketService) Unassign(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	if err := policy.CanUnassign(actor, nil).Err(); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanUnassign(actor, current).Err(); err != nil {
		return nil, err
	}

	previous := *current.AssignedAgentID
	ticket, err := s.tickets.Unassign(ctx, id, previous)
	if err != nil {
		return nil, ticketError(err, id)
	}

	s.metrics.RecordTransition("unassign")
	s.publish(ctx, events.EventTicketUnassigned, actor, ticket, &previous)
	return ticket, nil
}

// Resolve closes the ticket and then tells the owner. A failed
// notification is reported as a warning; the ticket stays closed.
func (s *TicketService) Resolve(ctx context.Context, actor *domain.User, id string) (*ResolveResult, error) {
	if err := policy.CanResolve(actor, nil).Err(); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanResolve(actor, current).Err(); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.Resolve(ctx, id, current.AssignedAgentID, actor.ID)
	if err != nil {
		return nil, ticketError(err, id)
	}

	s.metrics.RecordTransition("resolve")
	s.publish(ctx, events.EventTicketResolved, actor, ticket, nil)

	result := &ResolveResult{Ticket: ticket}
	if warning := s.notifyResolved(ctx, ticket); warning != nil {
		result.Warnings = append(result.Warnings, warning)
	}
	return result, nil
}

func (s *TicketService) notifyResolved(ctx context.Context, ticket *domain.Ticket) *apperrors.DomainError {
	if s.sender == nil {
		return nil
	}

	// The request may be cancelled once the write has committed; delivery
	// still gets its own budget.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	owner, err := s.users.GetByID(notifyCtx, ticket.OwnerID)
	if err == nil && owner.Email == "" {
		err = errors.New("ticket owner has no email address")
	}
	if err == nil {
		err = s.sender.Send(notifyCtx, notify.Message{
			To:       []string{owner.Email},
			Subject:  "Ticket Resolved",
			Body:     fmt.Sprintf("Your ticket '%s' has been resolved.", ticket.Name),
			TicketID: ticket.ID,
		})
	}
	if err == nil {
		return nil
	}

	s.metrics.RecordNotificationFailure(s.sender.Name())
	s.logger.Warn("resolution notification failed",
		zap.String("ticket_id", ticket.ID),
		zap.String("channel", s.sender.Name()),
		zap.Error(err))
	return apperrors.NewNotificationError(s.sender.Name(), err)
}

// Comment appends an agent note to a ticket.
func (s *TicketService) Comment(ctx context.Context, actor *domain.User, id, text string) (*domain.Comment, error) {
	if err := policy.CanComment(actor, nil).Err(); err != nil {
		return nil, err
	}
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanComment(actor, ticket).Err(); err != nil {
		return nil, err
	}

	text = sanitizeText(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text is required", map[string]any{"field": "text"})
	}

	comment := &domain.Comment{TicketID: ticket.ID, AgentID: actor.ID, Text: text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, ticketError(err, id)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AgentID:     comment.AgentID,
			TextPreview: stringPreview(comment.Text, 120),
		},
	})
	return comment, nil
}

// ListComments returns the comment log, oldest first.
func (s *TicketService) ListComments(ctx context.Context, actor *domain.User, id string) ([]domain.Comment, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// List returns a page of tickets in the requested scope.
func (s *TicketService) List(ctx context.Context, actor *domain.User, query ListQuery) (*TicketPage, error) {
	if query.Scope == "" {
		query.Scope = policy.ScopeMine
	}
	if !query.Scope.Valid() {
		return nil, apperrors.NewValidationError("unknown scope", map[string]any{"scope": query.Scope})
	}
	if err := policy.CanListScope(actor, query.Scope).Err(); err != nil {
		return nil, err
	}

	filter := repository.TicketFilter{SortBy: query.SortBy}
	switch query.Scope {
	case policy.ScopeMine:
		filter.OwnerID = &actor.ID
	case policy.ScopeAssigned:
		filter.AssignedAgentID = &actor.ID
	case policy.ScopeUnassigned:
		filter.Unassigned = true
	}

	if query.Priority != "" {
		priority := domain.TicketPriority(query.Priority)
		if !priority.Valid() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": query.Priority})
		}
		filter.Priority = &priority
	}
	if query.State != "" {
		state := domain.TicketState(query.State)
		if !state.Valid() {
			return nil, apperrors.NewValidationError("unknown state", map[string]any{"state": query.State})
		}
		filter.State = &state
	}

	page, size := normalizePage(query.Page, query.PageSize)
	filter.Limit = size
	filter.Offset = (page - 1) * size

	items, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	total, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketPage{Items: items, Page: page, PageSize: size, Total: total}, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func (s *TicketService) load(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, ticketError(err, id)
	}
	return ticket, nil
}

func (s *TicketService) validateInput(ctx context.Context, input TicketInput) (TicketInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || utf8.RuneCountInString(input.Name) > maxTicketNameLength {
		return input, apperrors.NewValidationError("name must be 1-100 characters", map[string]any{"field": "name"})
	}
	input.Description = sanitizeText(input.Description)
	if input.Description == "" {
		return input, apperrors.NewValidationError("description is required", map[string]any{"field": "description"})
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityLow
	}
	if !input.Priority.Valid() {
		return input, apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority"})
	}
	if _, err := s.categories.Get(ctx, input.CategoryID); err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return input, apperrors.NewValidationError("invalid category selected", map[string]any{"field": "category_id"})
		}
		return input, err
	}
	return input, nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, actor *domain.User, ticket *domain.Ticket, previousAgent *string) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     eventType,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketPayload{
			Ticket:          *ticket,
			PreviousAgentID: previousAgent,
		},
	})
}
