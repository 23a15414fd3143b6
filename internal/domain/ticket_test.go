package domain

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketState_Rank(t *testing.T) {
	assert.Equal(t, 0, TicketStateOpen.Rank())
	assert.Equal(t, 1, TicketStateInProgress.Rank())
	assert.Equal(t, 2, TicketStateClosed.Rank())
	assert.Equal(t, 3, TicketState("archived").Rank())
}

func TestTicketPriority_Rank(t *testing.T) {
	assert.Equal(t, 0, TicketPriorityLow.Rank())
	assert.Equal(t, 1, TicketPriorityMedium.Rank())
	assert.Equal(t, 2, TicketPriorityHigh.Rank())
	assert.Equal(t, 3, TicketPriority("urgent").Rank())
}

func TestTicketOrderingByRank(t *testing.T) {
	tickets := []Ticket{
		{ID: "a", Priority: TicketPriorityMedium, State: TicketStateClosed},
		{ID: "b", Priority: TicketPriorityHigh, State: TicketStateOpen},
		{ID: "c", Priority: TicketPriorityLow, State: TicketStateInProgress},
	}
	ids := func() []string {
		out := make([]string, len(tickets))
		for i, ticket := range tickets {
			out[i] = ticket.ID
		}
		return out
	}

	// priority: low, medium, high (alphabetical would put high first)
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].Priority.Rank() < tickets[j].Priority.Rank()
	})
	assert.Equal(t, []string{"c", "a", "b"}, ids())

	// -state: closed, in_progress, open
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].State.Rank() > tickets[j].State.Rank()
	})
	assert.Equal(t, []string{"a", "c", "b"}, ids())
}
