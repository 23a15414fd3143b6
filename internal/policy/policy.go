// Package policy holds the access rules of the help desk. Every predicate is
// a pure function of the actor and, where relevant, the ticket, and returns a
// Decision instead of failing, so callers can render the reason or abort.
package policy

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Denial classifies why a decision was negative.
type Denial int

const (
	// DenyNone marks an allowed decision.
	DenyNone Denial = iota
	// DenyForbidden means the actor lacks the role or ownership.
	DenyForbidden
	// DenyNotFound means the ticket is hidden from the actor or excluded by a
	// precondition. It is reported exactly like a missing ticket.
	DenyNotFound
)

// Decision is the outcome of a predicate.
type Decision struct {
	Allowed bool
	Denial  Denial
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func forbid(reason string) Decision {
	return Decision{Denial: DenyForbidden, Reason: reason}
}

func hide(reason string) Decision {
	return Decision{Denial: DenyNotFound, Reason: reason}
}

// Err converts a denial into an abortable error; nil when allowed.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Denial == DenyNotFound:
		return apperrors.NewNotFound("ticket", nil)
	default:
		return apperrors.NewForbidden(d.Reason)
	}
}

// Scope is the subset of tickets a list request targets.
type Scope string

const (
	ScopeMine       Scope = "mine"
	ScopeAssigned   Scope = "assigned"
	ScopeUnassigned Scope = "unassigned"
	ScopeAll        Scope = "all"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeMine, ScopeAssigned, ScopeUnassigned, ScopeAll:
		return true
	}
	return false
}

const (
	reasonCreate      = "Only normal users or admins can create tickets."
	reasonViewAll     = "Only admins can view all tickets."
	reasonAssign      = "Only agents or admins can assign tickets."
	reasonUnassign    = "Only agents or admins can unassign tickets."
	reasonResolve     = "Only agents or admins can resolve tickets."
	reasonComment     = "Only agents or admins can add comments."
	reasonAgentOnly   = "Only agents or admins can view assigned tickets."
	reasonDashboard   = "Only agents or admins can access the agent dashboard."
	reasonAssigned    = "This ticket is already being handled by an agent."
	reasonNotYours    = "This ticket is not assigned to you."
	reasonNotVisible  = "Ticket not found."
	reasonBadState    = "This ticket cannot change state from its current state."
	reasonUnknownScop = "Unknown ticket scope."
)

func agentOrAdmin(actor *domain.User) bool {
	return actor.Superuser() || actor.IsAgent()
}

// CanCreate allows members of Normal Users and superusers.
func CanCreate(actor *domain.User) Decision {
	if actor.Superuser() || actor.HasGroup(domain.GroupNormalUsers) {
		return allow()
	}
	return forbid(reasonCreate)
}

// CanViewAll allows superusers only.
func CanViewAll(actor *domain.User) Decision {
	if actor.Superuser() {
		return allow()
	}
	return forbid(reasonViewAll)
}

// CanView decides whether the actor may read a ticket and its comments.
func CanView(actor *domain.User, ticket *domain.Ticket) Decision {
	switch {
	case actor == nil || ticket == nil:
		return hide(reasonNotVisible)
	case actor.Superuser():
		return allow()
	case ticket.OwnerID == actor.ID:
		return allow()
	case ticket.IsAssignedTo(actor.ID):
		return allow()
	case actor.IsAgent() && !ticket.IsAssigned():
		return allow()
	}
	return hide(reasonNotVisible)
}

// CanAssign requires an agent or superuser and, when a ticket is given, that
// nobody holds it yet. A held ticket is reported as not found.
func CanAssign(actor *domain.User, ticket *domain.Ticket) Decision {
	if !agentOrAdmin(actor) {
		return forbid(reasonAssign)
	}
	if ticket == nil {
		return allow()
	}
	if ticket.IsAssigned() {
		return hide(reasonAssigned)
	}
	return allow()
}

// CanUnassign requires the assigned agent (or a superuser) on an in-progress ticket.
func CanUnassign(actor *domain.User, ticket *domain.Ticket) Decision {
	if !agentOrAdmin(actor) {
		return forbid(reasonUnassign)
	}
	if ticket == nil {
		return allow()
	}
	if !ticket.IsAssigned() || ticket.State != domain.TicketStateInProgress {
		return hide(reasonBadState)
	}
	if !actor.Superuser() && !ticket.IsAssignedTo(actor.ID) {
		return hide(reasonNotYours)
	}
	return allow()
}

// CanResolve requires an open or in-progress ticket held by the actor.
// Superusers may resolve any open or in-progress ticket.
func CanResolve(actor *domain.User, ticket *domain.Ticket) Decision {
	if !agentOrAdmin(actor) {
		return forbid(reasonResolve)
	}
	if ticket == nil {
		return allow()
	}
	if ticket.State != domain.TicketStateOpen && ticket.State != domain.TicketStateInProgress {
		return hide(reasonBadState)
	}
	if actor.Superuser() {
		return allow()
	}
	if !ticket.IsAssignedTo(actor.ID) {
		return hide(reasonNotYours)
	}
	return allow()
}

// CanComment requires an agent holding the ticket, or a superuser.
func CanComment(actor *domain.User, ticket *domain.Ticket) Decision {
	if !agentOrAdmin(actor) {
		return forbid(reasonComment)
	}
	if ticket == nil || actor.Superuser() {
		return allow()
	}
	if !ticket.IsAssignedTo(actor.ID) {
		return hide(reasonNotYours)
	}
	return allow()
}

// CanEditOrDelete requires the owner of a ticket nobody holds yet.
// Non-owners see not found; the owner of a held ticket is forbidden.
func CanEditOrDelete(actor *domain.User, ticket *domain.Ticket) Decision {
	if actor == nil || ticket == nil || ticket.OwnerID != actor.ID {
		return hide(reasonNotVisible)
	}
	if ticket.IsAssigned() {
		return forbid(reasonAssigned)
	}
	return allow()
}

// CanListScope decides which list scopes the actor may request.
func CanListScope(actor *domain.User, scope Scope) Decision {
	switch scope {
	case ScopeMine:
		if actor == nil {
			return forbid(reasonNotVisible)
		}
		return allow()
	case ScopeAssigned, ScopeUnassigned:
		if agentOrAdmin(actor) {
			return allow()
		}
		return forbid(reasonAgentOnly)
	case ScopeAll:
		return CanViewAll(actor)
	}
	return forbid(reasonUnknownScop)
}

// CanViewAgentDashboard allows agents and superusers.
func CanViewAgentDashboard(actor *domain.User) Decision {
	if agentOrAdmin(actor) {
		return allow()
	}
	return forbid(reasonDashboard)
}

// TicketPermissions is the decision set a client needs to render a ticket.
type TicketPermissions struct {
	View     Decision
	Edit     Decision
	Delete   Decision
	Assign   Decision
	Unassign Decision
	Resolve  Decision
	Comment  Decision
}

// Evaluate computes every ticket-level decision for actor.
func Evaluate(actor *domain.User, ticket *domain.Ticket) TicketPermissions {
	edit := CanEditOrDelete(actor, ticket)
	return TicketPermissions{
		View:     CanView(actor, ticket),
		Edit:     edit,
		Delete:   edit,
		Assign:   CanAssign(actor, ticket),
		Unassign: CanUnassign(actor, ticket),
		Resolve:  CanResolve(actor, ticket),
		Comment:  CanComment(actor, ticket),
	}
}
