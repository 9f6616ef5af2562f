package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/store"
	"github.com/kart-io/memoryctl/internal/tenant"
	"github.com/kart-io/memoryctl/pkg/errors"
)

// GetMemory fetches a single memory by id, trying the caller's private
// scope first and falling back to team scope.
func (e *Engine) GetMemory(ctx context.Context, tctx tenant.Context, memoryID string) (*model.Memory, error) {
	return e.getMemoryByID(ctx, tctx, memoryID)
}

// ListMemories lists every memory in the tenant scope, optionally
// narrowed, newest-first.
func (e *Engine) ListMemories(ctx context.Context, tctx tenant.Context, opts tenant.FilterOptions) ([]*model.Memory, error) {
	filter := tenant.MakeFilter(tctx, store.RecordMemory, opts)
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	records, err := e.Index.Scroll(ictx, filter, 10_000, "")
	if err != nil {
		return nil, errors.ErrStorage.WithCause(err)
	}

	mems := make([]*model.Memory, 0, len(records))
	for _, rec := range records {
		m, err := store.MemoryFromPayload(rec.Payload)
		if err != nil {
			continue
		}
		mems = append(mems, m)
	}
	sort.Slice(mems, func(i, j int) bool { return mems[i].Created.After(mems[j].Created) })
	return mems, nil
}

// Forget deletes a memory outright, independent of its decay state.
func (e *Engine) Forget(ctx context.Context, tctx tenant.Context, memoryID string) error {
	mem, err := e.getMemoryByID(ctx, tctx, memoryID)
	if err != nil {
		return err
	}
	filter := store.Filter{Must: []store.Condition{
		store.Eq(store.FieldType, string(store.RecordMemory)),
		store.Eq(store.FieldID, mem.ID),
		store.Eq(store.FieldUserID, mem.UserID),
	}}
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	if err := e.Index.Delete(ictx, filter); err != nil {
		return errors.ErrStorage.WithCause(err)
	}
	return nil
}

// Pin sets pinned=true, exempting the memory from Reflect's fading prune.
func (e *Engine) Pin(ctx context.Context, tctx tenant.Context, memoryID string) error {
	return e.setPinned(ctx, tctx, memoryID, true)
}

// Unpin clears pinned.
func (e *Engine) Unpin(ctx context.Context, tctx tenant.Context, memoryID string) error {
	return e.setPinned(ctx, tctx, memoryID, false)
}

func (e *Engine) setPinned(ctx context.Context, tctx tenant.Context, memoryID string, pinned bool) error {
	if err := e.setMemoryFields(ctx, tctx, memoryID, map[string]any{"pinned": pinned}); err != nil {
		return errors.ErrStorage.WithCause(err)
	}
	return nil
}

// MemoryUpdate carries the caller-supplied fields UpdateMemory accepts;
// nil fields are left unchanged. A non-nil Content triggers a re-embed.
type MemoryUpdate struct {
	Content *string
	Person  *string
	Project *string
	Pinned  *bool
}

// UpdateMemory applies upd's non-nil fields to an existing memory,
// re-embedding when Content changes.
func (e *Engine) UpdateMemory(ctx context.Context, tctx tenant.Context, memoryID string, upd MemoryUpdate) error {
	partial := map[string]any{}
	if upd.Person != nil {
		partial[store.FieldPerson] = *upd.Person
	}
	if upd.Project != nil {
		partial[store.FieldProject] = *upd.Project
	}
	if upd.Pinned != nil {
		partial["pinned"] = *upd.Pinned
	}

	if upd.Content != nil {
		if len(*upd.Content) > model.MaxContentLength {
			return errors.ErrValidation.WithMessagef("content exceeds %d characters", model.MaxContentLength)
		}
		mem, err := e.getMemoryByID(ctx, tctx, memoryID)
		if err != nil {
			return err
		}
		dense, sparse, err := e.embedContent(ctx, *upd.Content)
		if err != nil {
			return err
		}
		mem.Content = *upd.Content
		payload, err := store.MemoryToPayload(mem)
		if err != nil {
			return errors.ErrStorage.WithCause(err)
		}
		ictx, cancel := e.indexCtx(ctx)
		err = e.Index.Upsert(ictx, mem.ID, dense, sparse, payload)
		cancel()
		if err != nil {
			return errors.ErrStorage.WithCause(err)
		}
	}

	if len(partial) == 0 {
		return nil
	}
	if err := e.setMemoryFields(ctx, tctx, memoryID, partial); err != nil {
		return errors.ErrStorage.WithCause(err)
	}
	return nil
}

// ScanOptions is Scan's options argument; it has no fields, and Scan
// always groups by both gate and sensitivity.
type ScanOptions struct{}

// ScanReport is Scan's grouped-count result: one pass over the tenant's
// memories, counted by gate and by sensitivity.
type ScanReport struct {
	Total         int
	ByGate        map[model.Gate]int
	BySensitivity map[model.Sensitivity]int
}

// Scan aggregates memory counts by gate and by sensitivity for the tenant.
func (e *Engine) Scan(ctx context.Context, tctx tenant.Context, _ ScanOptions) (*ScanReport, error) {
	filter := tenant.MakeFilter(tctx, store.RecordMemory, tenant.FilterOptions{})
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	records, err := e.Index.Scroll(ictx, filter, 10_000, "")
	if err != nil {
		return nil, errors.ErrStorage.WithCause(err)
	}

	report := &ScanReport{
		ByGate:        map[model.Gate]int{},
		BySensitivity: map[model.Sensitivity]int{},
	}
	for _, rec := range records {
		m, err := store.MemoryFromPayload(rec.Payload)
		if err != nil {
			continue
		}
		report.Total++
		report.ByGate[m.Gate]++
		sens := m.Sensitivity
		if sens == "" {
			sens = model.SensitivityUnset
		}
		report.BySensitivity[sens]++
	}
	return report, nil
}

// Migrate reassigns every memory, journal entry, identity card, and rule
// from one tenant scope to another in bulk: a counted SetPayload sweep,
// not a delete-then-reinsert, so count(to) grows by exactly count(from)
// and count(from) drops to zero.
func (e *Engine) Migrate(ctx context.Context, from, to tenant.Context) (int, error) {
	toUserID := tenantUserID(to, "")
	moved := 0
	for _, rt := range []store.RecordType{store.RecordMemory, store.RecordJournal, store.RecordIdentity, store.RecordRule} {
		n, err := e.migrateRecordType(ctx, from, rt, toUserID)
		if err != nil {
			return moved, err
		}
		moved += n
	}
	if e.Audit != nil {
		_ = e.Audit.Record(ctx, toUserID, "migrate", fmt.Sprintf("moved %d records from %s", moved, tenantUserID(from, "")))
	}
	return moved, nil
}

func (e *Engine) migrateRecordType(ctx context.Context, from tenant.Context, rt store.RecordType, toUserID string) (int, error) {
	filter := tenant.MakeFilter(from, rt, tenant.FilterOptions{})
	cctx, cancel := e.indexCtx(ctx)
	n, err := e.Index.Count(cctx, filter)
	cancel()
	if err != nil {
		return 0, errors.ErrStorage.WithCause(err)
	}
	if n == 0 {
		return 0, nil
	}

	// Reassigning the tenant key also retargets the derived scope fields,
	// so a record moved into (or out of) a team scope stays matchable by
	// MakeFilter's visibility/team_id branches.
	visibility, teamID := store.ScopeFields(toUserID)
	sctx, cancel := e.indexCtx(ctx)
	err = e.Index.SetPayload(sctx, filter, map[string]any{
		store.FieldUserID:     toUserID,
		store.FieldVisibility: visibility,
		store.FieldTeamID:     teamID,
	})
	cancel()
	if err != nil {
		return 0, errors.ErrStorage.WithCause(err)
	}
	return int(n), nil
}

// TeamMemoriesList is Teams.Memories.List: every team-visibility memory
// under a given team scope, regardless of creator.
func (e *Engine) TeamMemoriesList(ctx context.Context, teamID string) ([]*model.Memory, error) {
	tctx := tenant.Context{UserID: tenant.TeamUserID(teamID), TeamID: teamID}
	opts := tenant.FilterOptions{Visibility: string(model.VisibilityTeam)}
	return e.ListMemories(ctx, tctx, opts)
}
