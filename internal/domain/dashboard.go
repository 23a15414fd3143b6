package domain

import "time"

// DayCount is the number of tickets created on a calendar day.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// LabelCount pairs a label (category name, agent username) with a count.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// StateCount is the number of tickets in a state.
type StateCount struct {
	State TicketState `json:"state"`
	Count int64       `json:"count"`
}

// StatePriorityCount is one cell of the state x priority matrix.
type StatePriorityCount struct {
	State    TicketState    `json:"state"`
	Priority TicketPriority `json:"priority"`
	Count    int64          `json:"count"`
}

// AdminDashboard aggregates ticket data across the whole desk.
type AdminDashboard struct {
	TicketsPerDay          []DayCount           `json:"tickets_per_day"`
	TicketsByCategory      []LabelCount         `json:"tickets_by_category"`
	ResolvedByAgent        []LabelCount         `json:"resolved_by_agent"`
	AvgResolutionHours     float64              `json:"avg_resolution_hours"`
	StatePriorityBreakdown []StatePriorityCount `json:"state_priority_breakdown"`
	GeneratedAt            time.Time            `json:"generated_at"`
}

// AgentDashboard aggregates the tickets assigned to one agent.
type AgentDashboard struct {
	AgentID            string       `json:"agent_id"`
	TicketsByCategory  []LabelCount `json:"tickets_by_category"`
	TicketsByState     []StateCount `json:"tickets_by_state"`
	AvgResolutionHours float64      `json:"avg_resolution_hours"`
	GeneratedAt        time.Time    `json:"generated_at"`
}
