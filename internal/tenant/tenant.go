// Package tenant implements the tenant plane: the single MakeFilter
// function every other component uses to namespace data by
// scope = private(user) | team(id).
package tenant

import "github.com/kart-io/memoryctl/internal/store"

// Context carries the caller's tenant identity into every engine
// operation. The plane does not authenticate; it trusts the caller to
// present an already-resolved tenant.
type Context struct {
	UserID string
	TeamID string
}

// HasTeam reports whether this context carries a team.
func (c Context) HasTeam() bool {
	return c.TeamID != ""
}

// TeamUserID is the synthetic user_id a team-visibility write is attached
// to: "team:<team_id>".
func (c Context) TeamUserID() string {
	return TeamUserID(c.TeamID)
}

// TeamUserID builds the synthetic user_id for a team scope.
func TeamUserID(teamID string) string {
	return store.TeamScopePrefix + teamID
}
