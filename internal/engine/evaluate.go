package engine

import (
	"context"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/tenant"
	"github.com/kart-io/memoryctl/pkg/security/authz/casbin"
)

// enforcementEffect maps a Rule's enforcement level onto a Casbin policy
// effect: block is a hard deny, suggest and enforce both permit (the
// caller is left to decide how strictly to act on a suggest match).
func enforcementEffect(e model.Enforcement) casbin.Effect {
	if e == model.EnforcementBlock {
		return casbin.Deny
	}
	return casbin.Allow
}

// Evaluate matches an action tuple (resource, action) against the tenant's
// rules for the given scope via an in-memory Casbin enforcer, per the
// optional Rules.Evaluate helper: the engine never calls this itself, and
// Remember/Recall never gate on its result.
func (e *Engine) Evaluate(ctx context.Context, tctx tenant.Context, scope, resource, action string) (bool, error) {
	rules, err := e.ListRules(ctx, tctx)
	if err != nil {
		return false, err
	}

	m, err := casbin.NewMatcher()
	if err != nil {
		return false, err
	}
	for _, r := range rules {
		if r.Scope != scope {
			continue
		}
		if err := m.LoadPolicy(r.Scope, r.Condition, enforcementEffect(r.Enforcement)); err != nil {
			return false, err
		}
	}

	return m.Evaluate(scope, resource, action)
}
