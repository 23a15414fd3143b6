package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// StatsRepository runs the aggregate queries behind the dashboards.
// A nil agentID means the whole desk.
type StatsRepository interface {
	TicketsPerDay(ctx context.Context) ([]domain.DayCount, error)
	TicketsByCategory(ctx context.Context, agentID *string) ([]domain.LabelCount, error)
	ResolvedByAgent(ctx context.Context) ([]domain.LabelCount, error)
	AvgResolutionHours(ctx context.Context, agentID *string) (float64, error)
	StatePriorityBreakdown(ctx context.Context) ([]domain.StatePriorityCount, error)
	TicketsByState(ctx context.Context, agentID string) ([]domain.StateCount, error)
}

type statsRepository struct {
	db DBTX
}

// NewStatsRepository constructs repository.
func NewStatsRepository(db DBTX) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) TicketsPerDay(ctx context.Context) ([]domain.DayCount, error) {
	const query = `
        SELECT date_trunc('day', creation_date) AS day, COUNT(*)
        FROM tickets GROUP BY day ORDER BY day ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DayCount, error) {
		var dc domain.DayCount
		err := row.Scan(&dc.Day, &dc.Count)
		return dc, err
	})
}

func (r *statsRepository) TicketsByCategory(ctx context.Context, agentID *string) ([]domain.LabelCount, error) {
	const query = `
        SELECT c.name, COUNT(t.id)
        FROM tickets t JOIN categories c ON c.id = t.category_id
        WHERE $1::uuid IS NULL OR t.assigned_agent_id = $1::uuid
        GROUP BY c.name ORDER BY c.name ASC`
	rows, err := r.db.Query(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	return collectLabels(rows)
}

func (r *statsRepository) ResolvedByAgent(ctx context.Context) ([]domain.LabelCount, error) {
	const query = `
        SELECT u.username, COUNT(t.id)
        FROM tickets t JOIN users u ON u.id = t.assigned_agent_id
        WHERE t.state = 'closed'
        GROUP BY u.username ORDER BY u.username ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectLabels(rows)
}

func (r *statsRepository) AvgResolutionHours(ctx context.Context, agentID *string) (float64, error) {
	const query = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (resolution_date - creation_date)) / 3600.0), 0)::float8
        FROM tickets
        WHERE state = 'closed' AND resolution_date IS NOT NULL
          AND ($1::uuid IS NULL OR assigned_agent_id = $1::uuid)`
	var hours float64
	if err := r.db.QueryRow(ctx, query, agentID).Scan(&hours); err != nil {
		return 0, err
	}
	return hours, nil
}

func (r *statsRepository) StatePriorityBreakdown(ctx context.Context) ([]domain.StatePriorityCount, error) {
	const query = `
        SELECT state, priority, COUNT(*)
        FROM tickets GROUP BY state, priority ORDER BY state, priority`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StatePriorityCount, error) {
		var c domain.StatePriorityCount
		err := row.Scan(&c.State, &c.Priority, &c.Count)
		return c, err
	})
}

func (r *statsRepository) TicketsByState(ctx context.Context, agentID string) ([]domain.StateCount, error) {
	const query = `
        SELECT state, COUNT(*)
        FROM tickets WHERE assigned_agent_id = $1
        GROUP BY state ORDER BY state`
	rows, err := r.db.Query(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StateCount, error) {
		var c domain.StateCount
		err := row.Scan(&c.State, &c.Count)
		return c, err
	})
}

func collectLabels(rows pgx.Rows) ([]domain.LabelCount, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LabelCount, error) {
		var lc domain.LabelCount
		err := row.Scan(&lc.Label, &lc.Count)
		return lc, err
	})
}
