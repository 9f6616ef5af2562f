package engine

import (
	"context"
	"sort"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/store"
	"github.com/kart-io/memoryctl/internal/tenant"
	"github.com/kart-io/memoryctl/pkg/errors"
	"github.com/kart-io/memoryctl/pkg/id"
)

// ruleIDGen produces the random suffix for a new rule id. A package-level
// generator is fine here: ULIDGenerator serializes its own state.
var ruleIDGen = id.NewULIDGenerator()

// RuleInput is the CreateRule contract: scope defaults to model.DefaultScope
// when empty.
type RuleInput struct {
	Scope       string
	Condition   string
	Enforcement model.Enforcement
}

// RuleUpdate carries the only three fields UpdateRule is allowed to
// touch: everything else on a Rule is immutable after creation.
type RuleUpdate struct {
	Scope       *string
	Condition   *string
	Enforcement *model.Enforcement
}

// CreateRule stores a new per-tenant policy entry.
func (e *Engine) CreateRule(ctx context.Context, tctx tenant.Context, in RuleInput) (*model.Rule, error) {
	if in.Condition == "" {
		return nil, errors.ErrValidation.WithMessage("condition must not be empty")
	}
	scope := in.Scope
	if scope == "" {
		scope = model.DefaultScope
	}
	enforcement := in.Enforcement
	if enforcement == "" {
		enforcement = model.EnforcementSuggest
	}

	r := &model.Rule{
		RuleID:      "rule_" + ruleIDGen.Generate(),
		Scope:       scope,
		Condition:   in.Condition,
		Enforcement: enforcement,
		Created:     e.now(),
		UserID:      tenantUserID(tctx, ""),
	}
	if err := e.upsertRule(ctx, r); err != nil {
		return nil, errors.ErrStorage.WithCause(err)
	}
	return r, nil
}

// ListRules returns every rule for the tenant, newest-first.
func (e *Engine) ListRules(ctx context.Context, tctx tenant.Context) ([]*model.Rule, error) {
	filter := tenant.MakeFilter(tctx, store.RecordRule, tenant.FilterOptions{})
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	records, err := e.Index.Scroll(ictx, filter, 10_000, "")
	if err != nil {
		return nil, errors.ErrStorage.WithCause(err)
	}

	rules := make([]*model.Rule, 0, len(records))
	for _, rec := range records {
		r, err := store.RuleFromPayload(rec.Payload)
		if err != nil {
			continue
		}
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Created.After(rules[j].Created) })
	return rules, nil
}

// UpdateRule applies an RuleUpdate's non-nil fields to an existing rule.
func (e *Engine) UpdateRule(ctx context.Context, tctx tenant.Context, ruleID string, upd RuleUpdate) error {
	partial := map[string]any{}
	if upd.Scope != nil {
		partial["scope"] = *upd.Scope
	}
	if upd.Condition != nil {
		partial["condition"] = *upd.Condition
	}
	if upd.Enforcement != nil {
		partial["enforcement"] = string(*upd.Enforcement)
	}
	if len(partial) == 0 {
		return nil
	}
	return e.setRuleFields(ctx, tctx, ruleID, partial)
}

// TouchRule updates last_triggered to now, recording that a rule fired.
func (e *Engine) TouchRule(ctx context.Context, tctx tenant.Context, ruleID string) error {
	return e.setRuleFields(ctx, tctx, ruleID, map[string]any{
		"last_triggered": e.now().UTC().Format(timeLayout),
	})
}

// DeleteRule removes one rule.
func (e *Engine) DeleteRule(ctx context.Context, tctx tenant.Context, ruleID string) error {
	filter := tenant.MakeFilter(tctx, store.RecordRule, tenant.FilterOptions{})
	filter.Must = append(filter.Must, store.Eq(store.FieldRuleID, ruleID))
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	return e.Index.Delete(ictx, filter)
}

func (e *Engine) upsertRule(ctx context.Context, r *model.Rule) error {
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	return e.Index.Upsert(ictx, r.RuleID, nil, nil, store.RuleToPayload(r))
}

func (e *Engine) setRuleFields(ctx context.Context, tctx tenant.Context, ruleID string, partial map[string]any) error {
	filter := tenant.MakeFilter(tctx, store.RecordRule, tenant.FilterOptions{})
	filter.Must = append(filter.Must, store.Eq(store.FieldRuleID, ruleID))
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	return e.Index.SetPayload(ictx, filter, partial)
}
