package engine

import (
	"context"
	"sort"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/store"
	"github.com/kart-io/memoryctl/internal/tenant"
	"github.com/kart-io/memoryctl/pkg/checkpoint"
	"github.com/kart-io/memoryctl/pkg/errors"
	"github.com/kart-io/memoryctl/pkg/id"
)

// Checkpoint writes a journal entry with the checkpoint gate: a regular
// journal write, exempt from Reflect's consolidation window only by the
// surrounding tool layer's policy, not by the engine itself.
func (e *Engine) Checkpoint(ctx context.Context, tctx tenant.Context, content string) (*model.JournalEntry, error) {
	now := e.now()
	j := &model.JournalEntry{
		ID:        "jrn_chk_" + id.NewMemoryID(now)[4:],
		Timestamp: now,
		Gate:      model.GateCheckpoint,
		Content:   content,
		Date:      now.UTC().Format("2006-01-02"),
		UserID:    tenantUserID(tctx, ""),
	}
	if err := e.upsertJournal(ctx, j); err != nil {
		return nil, errors.ErrStorage.WithCause(err)
	}
	return j, nil
}

// LatestCheckpoint returns the newest journal entry with gate==checkpoint
// for the tenant, or NotFound if none exists.
func (e *Engine) LatestCheckpoint(ctx context.Context, tctx tenant.Context) (*model.JournalEntry, error) {
	opts := tenant.FilterOptions{Gate: string(model.GateCheckpoint)}
	filter := tenant.MakeFilter(tctx, store.RecordJournal, opts)
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	records, err := e.Index.Scroll(ictx, filter, 10_000, "")
	if err != nil {
		return nil, errors.ErrStorage.WithCause(err)
	}
	if len(records) == 0 {
		return nil, errors.ErrNotFound.WithMessage("no checkpoint found")
	}

	entries := make([]*model.JournalEntry, 0, len(records))
	for _, rec := range records {
		j, err := store.JournalFromPayload(rec.Payload)
		if err != nil {
			continue
		}
		entries = append(entries, j)
	}
	if len(entries) == 0 {
		return nil, errors.ErrNotFound.WithMessage("no checkpoint found")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	return entries[0], nil
}

// SealCheckpoint writes a checkpoint journal entry and returns it as a
// signed token a client can hand back at the start of its next session;
// the JWT wrapper makes the hand-off tamper-evident in transit, unlike a
// bare journal id.
func (e *Engine) SealCheckpoint(ctx context.Context, tctx tenant.Context, sealer *checkpoint.Sealer, content string) (string, error) {
	j, err := e.Checkpoint(ctx, tctx, content)
	if err != nil {
		return "", err
	}
	token, err := sealer.Seal(tctx.UserID, tctx.TeamID, j.ID)
	if err != nil {
		return "", err
	}
	return token, nil
}

// OpenCheckpoint validates a sealed checkpoint token and returns the
// tenant context and journal entry it hands off.
func (e *Engine) OpenCheckpoint(ctx context.Context, sealer *checkpoint.Sealer, token string) (tenant.Context, *model.JournalEntry, error) {
	claims, err := sealer.Open(token)
	if err != nil {
		return tenant.Context{}, nil, err
	}
	tctx := tenant.Context{UserID: claims.UserID, TeamID: claims.TeamID}

	filter := tenant.MakeFilter(tctx, store.RecordJournal, tenant.FilterOptions{})
	filter.Must = append(filter.Must, store.Eq(store.FieldID, claims.JournalID))
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	records, err := e.Index.Scroll(ictx, filter, 1, "")
	if err != nil {
		return tenant.Context{}, nil, errors.ErrStorage.WithCause(err)
	}
	if len(records) == 0 {
		return tenant.Context{}, nil, errors.ErrNotFound.WithMessage("checkpoint journal entry not found")
	}
	j, err := store.JournalFromPayload(records[0].Payload)
	if err != nil {
		return tenant.Context{}, nil, errors.ErrStorage.WithCause(err)
	}
	return tctx, j, nil
}
