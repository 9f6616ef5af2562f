// Package casbin wraps an in-memory Casbin enforcer for matching a Rule's
// condition against an action tuple. Unlike the gorm-backed adapter this is
// adapted from, policies here live only in the enforcer's memory; callers
// reload them from whatever store holds the Rules before each Evaluate.
package casbin

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/kart-io/memoryctl/pkg/errors"
)

// modelText is a deny-overrides ACL model: a policy matches when its
// subject equals the request's and its object pattern key-matches the
// request's resource:action tuple.
const modelText = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj, eft

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = r.sub == p.sub && keyMatch2(r.obj, p.obj)
`

// Effect is a policy's allow/deny outcome.
type Effect string

const (
	Allow Effect = "allow"
	Deny  Effect = "deny"
)

// Matcher evaluates (scope, resource, action) tuples against a set of
// policies loaded from Rule records. Safe for concurrent use.
type Matcher struct {
	mu       sync.Mutex
	enforcer *casbin.Enforcer
}

// NewMatcher builds an empty in-memory matcher.
func NewMatcher() (*Matcher, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, errors.ErrConfig.WithCause(err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, errors.ErrConfig.WithCause(err)
	}
	e.EnableLog(false)
	return &Matcher{enforcer: e}, nil
}

// LoadPolicy adds one (scope, objectPattern, effect) policy line. objectPattern
// may use Casbin's keyMatch2 wildcards (e.g. "memory:*", "/team/:id/*").
func (m *Matcher) LoadPolicy(scope, objectPattern string, eft Effect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.enforcer.AddPolicy(scope, objectPattern, string(eft))
	if err != nil {
		return errors.ErrConfig.WithCause(err)
	}
	return nil
}

// Reset clears every loaded policy, leaving the model intact.
func (m *Matcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enforcer.ClearPolicy()
}

// Evaluate reports whether scope is allowed to act on resource:action given
// the policies currently loaded.
func (m *Matcher) Evaluate(scope, resource, action string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok, err := m.enforcer.Enforce(scope, fmt.Sprintf("%s:%s", resource, action))
	if err != nil {
		return false, errors.ErrStorage.WithCause(err)
	}
	return ok, nil
}
