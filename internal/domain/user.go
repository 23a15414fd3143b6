package domain

import "time"

// Group is a named membership that drives what a user may do.
type Group string

const (
	GroupNormalUsers     Group = "normal_users"
	GroupTechnicalAgents Group = "technical_agents"
	GroupHRAgents        Group = "hr_agents"
	GroupConsultants     Group = "consultants"
)

// AgentGroups lists the specialist groups whose members act as agents.
var AgentGroups = []Group{GroupTechnicalAgents, GroupHRAgents, GroupConsultants}

// Valid reports whether g is one of the fixed groups.
func (g Group) Valid() bool {
	switch g {
	case GroupNormalUsers, GroupTechnicalAgents, GroupHRAgents, GroupConsultants:
		return true
	}
	return false
}

// Role is the derived landing role of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// User is an account that can file, work on or administer tickets.
type User struct {
	ID           string
	Username     string
	Email        string
	PhoneNumber  string
	PasswordHash string
	IsSuperuser  bool
	IsStaff      bool
	Groups       []Group
	CreatedAt    time.Time
}

// HasGroup reports membership in g.
func (u *User) HasGroup(g Group) bool {
	if u == nil {
		return false
	}
	for _, candidate := range u.Groups {
		if candidate == g {
			return true
		}
	}
	return false
}

// IsAgent reports membership in any specialist group.
func (u *User) IsAgent() bool {
	for _, g := range AgentGroups {
		if u.HasGroup(g) {
			return true
		}
	}
	return false
}

// Superuser is nil-safe access to the superuser flag.
func (u *User) Superuser() bool {
	return u != nil && u.IsSuperuser
}

// Role derives where the user lands after login.
func (u *User) Role() Role {
	switch {
	case u.Superuser():
		return RoleAdmin
	case u.IsAgent():
		return RoleAgent
	default:
		return RoleUser
	}
}

// WithDefaultGroups returns groups with Normal Users added when missing.
// Registration applies it before the user row is written.
func WithDefaultGroups(groups []Group) []Group {
	out := make([]Group, 0, len(groups)+1)
	out = append(out, GroupNormalUsers)
	for _, g := range groups {
		if g == GroupNormalUsers {
			continue
		}
		dup := false
		for _, existing := range out {
			if existing == g {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, g)
		}
	}
	return out
}

// GroupsToStrings converts groups for storage.
func GroupsToStrings(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = string(g)
	}
	return out
}

// GroupsFromStrings converts stored values, dropping unknown names.
func GroupsFromStrings(values []string) []Group {
	out := make([]Group, 0, len(values))
	for _, v := range values {
		if g := Group(v); g.Valid() {
			out = append(out, g)
		}
	}
	return out
}
