package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures list parameters. SortBy is matched against a fixed
// allow-list; unknown keys fall back to newest first.
type TicketFilter struct {
	OwnerID         *string
	AssignedAgentID *string
	Unassigned      bool
	Priority        *domain.TicketPriority
	State           *domain.TicketState
	SortBy          string
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence. Every state change is a
// single conditional statement; when the precondition no longer holds the
// call returns pgx.ErrNoRows and nothing is written.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateUnassigned(ctx context.Context, ticket *domain.Ticket, ownerID string) (*domain.Ticket, error)
	DeleteUnassigned(ctx context.Context, id, ownerID string) error
	Assign(ctx context.Context, id, agentID string) (*domain.Ticket, error)
	Unassign(ctx context.Context, id, expectedAgentID string) (*domain.Ticket, error)
	Resolve(ctx context.Context, id string, expectedAgentID *string, resolverID string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Count(ctx context.Context, filter TicketFilter) (int, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, name, description, category_id, priority, state, owner_id, assigned_agent_id, creation_date, resolution_date`

const defaultOrder = `creation_date DESC, id ASC`

// State and priority sort by meaning (open before closed, low before high),
// not alphabetically. The CASE expressions mirror domain Rank.
var (
	stateRank    = rankCase("state", domain.AllTicketStates)
	priorityRank = rankCase("priority", domain.AllTicketPriorities)
)

var ticketOrderings = map[string]string{
	"state":     stateRank + ` ASC, ` + defaultOrder,
	"-state":    stateRank + ` DESC, ` + defaultOrder,
	"priority":  priorityRank + ` ASC, ` + defaultOrder,
	"-priority": priorityRank + ` DESC, ` + defaultOrder,
}

func rankCase[T ~string](column string, ordered []T) string {
	var b strings.Builder
	b.WriteString("CASE " + column)
	for i, v := range ordered {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", v, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(ordered))
	return b.String()
}

// OrderClause resolves a user supplied sort key to a fixed SQL fragment.
func OrderClause(sortBy string) string {
	if clause, ok := ticketOrderings[sortBy]; ok {
		return clause
	}
	return defaultOrder
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (name, description, category_id, priority, state, owner_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, creation_date`
	return r.db.QueryRow(ctx, query,
		ticket.Name,
		ticket.Description,
		ticket.CategoryID,
		ticket.Priority,
		ticket.State,
		ticket.OwnerID,
	).Scan(&ticket.ID, &ticket.CreationDate)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) UpdateUnassigned(ctx context.Context, ticket *domain.Ticket, ownerID string) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET name=$1, description=$2, category_id=$3, priority=$4
        WHERE id=$5 AND owner_id=$6 AND assigned_agent_id IS NULL
        RETURNING ` + ticketColumns
	return scanTicket(r.db.QueryRow(ctx, query,
		ticket.Name,
		ticket.Description,
		ticket.CategoryID,
		ticket.Priority,
		ticket.ID,
		ownerID,
	))
}

func (r *ticketRepository) DeleteUnassigned(ctx context.Context, id, ownerID string) error {
	const query = `DELETE FROM tickets WHERE id=$1 AND owner_id=$2 AND assigned_agent_id IS NULL`
	cmd, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Assign(ctx context.Context, id, agentID string) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET assigned_agent_id=$1, state='in_progress'
        WHERE id=$2 AND assigned_agent_id IS NULL AND state IN ('open','in_progress')
        RETURNING ` + ticketColumns
	return scanTicket(r.db.QueryRow(ctx, query, agentID, id))
}

func (r *ticketRepository) Unassign(ctx context.Context, id, expectedAgentID string) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET assigned_agent_id=NULL, state='open'
        WHERE id=$1 AND assigned_agent_id=$2 AND state='in_progress'
        RETURNING ` + ticketColumns
	return scanTicket(r.db.QueryRow(ctx, query, id, expectedAgentID))
}

// Resolve closes the ticket if it is still held by expectedAgentID (nil for
// unassigned). An unassigned ticket is claimed by the resolver in the same write.
func (r *ticketRepository) Resolve(ctx context.Context, id string, expectedAgentID *string, resolverID string) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET state='closed', resolution_date=NOW(),
            assigned_agent_id=COALESCE(assigned_agent_id, $1)
        WHERE id=$2 AND state IN ('open','in_progress')
            AND assigned_agent_id IS NOT DISTINCT FROM $3
        RETURNING ` + ticketColumns
	return scanTicket(r.db.QueryRow(ctx, query, resolverID, id, expectedAgentID))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := filter.where()

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		ticketColumns, where, OrderClause(filter.SortBy), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int, error) {
	where, args := filter.where()
	query := `SELECT COUNT(*) FROM tickets WHERE ` + where

	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (f TicketFilter) where() (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if f.AssignedAgentID != nil {
		args = append(args, *f.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if f.Unassigned {
		clauses = append(clauses, "assigned_agent_id IS NULL")
	}
	if f.Priority != nil {
		args = append(args, *f.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if f.State != nil {
		args = append(args, *f.State)
		clauses = append(clauses, fmt.Sprintf("state=$%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Name,
		&ticket.Description,
		&ticket.CategoryID,
		&ticket.Priority,
		&ticket.State,
		&ticket.OwnerID,
		&ticket.AssignedAgentID,
		&ticket.CreationDate,
		&ticket.ResolutionDate,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
