package tenant

import (
	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/store"
)

// FilterOptions narrows a MakeFilter result with the optional payload
// predicates every component is allowed to add on top of the tenant scope.
type FilterOptions struct {
	Gate        string
	Person      string
	Project     string
	Visibility  string
	Sensitivity string
	Date        string
}

// MakeFilter builds the index filter every read and write in the engine
// scopes itself by: a record-type discriminator, the private/team scope
// derived from ctx, and any narrowing predicates in opts.
//
// With no team bound, scope collapses to user_id == ctx.UserID. With a
// team bound and no explicit visibility requested, scope is the OR of
// (user_id == ctx.UserID AND visibility == private) and
// (team_id == ctx.TeamID AND visibility == team) — a caller asking for a
// specific Visibility narrows to just that branch instead.
func MakeFilter(ctx Context, recordType store.RecordType, opts FilterOptions) store.Filter {
	f := store.Filter{
		Must: []store.Condition{store.Eq(fieldType, string(recordType))},
	}

	switch {
	case !ctx.HasTeam():
		f.Must = append(f.Must, store.Eq(fieldUserID, ctx.UserID))
	case opts.Visibility == string(model.VisibilityTeam):
		f.Must = append(f.Must,
			store.Eq(fieldTeamID, ctx.TeamID),
			store.Eq(fieldVisibility, string(model.VisibilityTeam)),
		)
	case opts.Visibility == string(model.VisibilityPrivate):
		f.Must = append(f.Must,
			store.Eq(fieldUserID, ctx.UserID),
			store.Eq(fieldVisibility, string(model.VisibilityPrivate)),
		)
	default:
		f.Should = []store.Filter{
			{Must: []store.Condition{
				store.Eq(fieldUserID, ctx.UserID),
				store.Eq(fieldVisibility, string(model.VisibilityPrivate)),
			}},
			{Must: []store.Condition{
				store.Eq(fieldTeamID, ctx.TeamID),
				store.Eq(fieldVisibility, string(model.VisibilityTeam)),
			}},
		}
	}

	if opts.Gate != "" {
		f.Must = append(f.Must, store.Eq(fieldGate, opts.Gate))
	}
	if opts.Person != "" {
		f.Must = append(f.Must, store.Eq(fieldPerson, opts.Person))
	}
	if opts.Project != "" {
		f.Must = append(f.Must, store.Eq(fieldProject, opts.Project))
	}
	if opts.Sensitivity != "" {
		f.Must = append(f.Must, store.Eq(fieldSensitivity, opts.Sensitivity))
	}
	if opts.Date != "" {
		f.Must = append(f.Must, store.Eq(fieldDate, opts.Date))
	}

	return f
}

const (
	fieldType        = store.FieldType
	fieldUserID      = store.FieldUserID
	fieldTeamID      = store.FieldTeamID
	fieldVisibility  = store.FieldVisibility
	fieldGate        = store.FieldGate
	fieldPerson      = store.FieldPerson
	fieldProject     = store.FieldProject
	fieldSensitivity = store.FieldSensitivity
	fieldDate        = store.FieldDate
)
