package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_IsAgent(t *testing.T) {
	tests := []struct {
		name   string
		groups []Group
		want   bool
	}{
		{"no groups", nil, false},
		{"normal user", []Group{GroupNormalUsers}, false},
		{"technical agent", []Group{GroupNormalUsers, GroupTechnicalAgents}, true},
		{"hr agent", []Group{GroupHRAgents}, true},
		{"consultant", []Group{GroupConsultants}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Groups: tt.groups}
			assert.Equal(t, tt.want, u.IsAgent())
		})
	}
}

func TestUser_Role(t *testing.T) {
	assert.Equal(t, RoleAdmin, (&User{IsSuperuser: true, Groups: []Group{GroupHRAgents}}).Role())
	assert.Equal(t, RoleAgent, (&User{Groups: []Group{GroupConsultants}}).Role())
	assert.Equal(t, RoleUser, (&User{Groups: []Group{GroupNormalUsers}}).Role())

	var nilUser *User
	assert.False(t, nilUser.Superuser())
	assert.False(t, nilUser.IsAgent())
}

func TestWithDefaultGroups(t *testing.T) {
	assert.Equal(t, []Group{GroupNormalUsers}, WithDefaultGroups(nil))
	assert.Equal(t,
		[]Group{GroupNormalUsers, GroupTechnicalAgents},
		WithDefaultGroups([]Group{GroupTechnicalAgents, GroupNormalUsers, GroupTechnicalAgents}),
	)
}

func TestGroupsRoundTripDropsUnknown(t *testing.T) {
	stored := GroupsToStrings([]Group{GroupNormalUsers, GroupHRAgents})
	assert.Equal(t, []string{"normal_users", "hr_agents"}, stored)

	got := GroupsFromStrings(append(stored, "wizards"))
	assert.Equal(t, []Group{GroupNormalUsers, GroupHRAgents}, got)
}

func TestTicket_IsAssignedTo(t *testing.T) {
	agent := "agent-1"
	ticket := &Ticket{AssignedAgentID: &agent}

	assert.True(t, ticket.IsAssigned())
	assert.True(t, ticket.IsAssignedTo("agent-1"))
	assert.False(t, ticket.IsAssignedTo("agent-2"))
	assert.False(t, (&Ticket{}).IsAssignedTo("agent-1"))
}
