package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/store"
	"github.com/kart-io/memoryctl/internal/tenant"
	"github.com/kart-io/memoryctl/pkg/errors"
	tracing "github.com/kart-io/memoryctl/pkg/infra/tracing"
)

// identityWindow is how recent journal activity must be to trigger an
// identity card regeneration during Reflect.
const identityWindow = 2 * 24 * time.Hour

const consolidationSystemPrompt = `You write a short consolidated summary of a
week's worth of memory journal entries. Preserve concrete facts, names, and
decisions; drop redundancy. Reply with prose only, no preamble.`

const identitySystemPrompt = `You write a short first-person-adjacent prose
profile of a person or team, based on their recent memory journal entries.
Keep it factual and concise. Reply with prose only, no preamble.`

// DecayScore computes a memory's recency x frequency score as of now:
// recency halves every half-life, frequency is log2(access_count + 1).
func DecayScore(m *model.Memory, now time.Time) float64 {
	recency := 1.0
	if m.DecayClass != model.DecayNever {
		halfLife := model.HalfLifeDays[m.DecayClass]
		deltaDays := now.Sub(m.LastAccessed).Hours() / 24
		if deltaDays < 0 {
			deltaDays = 0
		}
		recency = math.Pow(0.5, deltaDays/halfLife)
	}
	frequency := math.Log2(float64(m.AccessCount) + 1)
	return recency * frequency
}

// IsFading reports whether a memory has decayed past the threshold:
// non-never decay class and a score below it.
func IsFading(m *model.Memory, now time.Time, threshold float64) bool {
	if m.DecayClass == model.DecayNever {
		return false
	}
	return DecayScore(m, now) < threshold
}

// Reflect runs the consolidation operation: folds stale journal
// days into weekly digests, prunes fading non-pinned memories, and
// regenerates the identity card if the journal has seen recent activity.
// Each step's failure is recorded in the report and does not prevent the
// remaining steps from running.
func (e *Engine) Reflect(ctx context.Context, tctx tenant.Context) (string, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Reflect")
	defer span.End()

	now := e.now()
	var report []string

	digested, err := e.consolidateJournal(ctx, tctx, now)
	if err != nil {
		report = append(report, fmt.Sprintf("consolidation failed: %v", err))
	} else {
		report = append(report, fmt.Sprintf("Consolidated %d week(s) into digests", digested))
	}

	archived, err := e.pruneFading(ctx, tctx, now)
	if err != nil {
		report = append(report, fmt.Sprintf("prune failed: %v", err))
	} else {
		report = append(report, fmt.Sprintf("Archived %d fading memories", archived))
	}

	identityUpdated, err := e.maybeRegenerateIdentity(ctx, tctx, now)
	if err != nil {
		report = append(report, fmt.Sprintf("identity regeneration failed: %v", err))
	} else if identityUpdated {
		report = append(report, "Regenerated identity card")
	}

	summary := strings.Join(report, "; ")
	if e.Audit != nil {
		if err := e.Audit.Record(ctx, tenantUserID(tctx, ""), "reflect", summary); err != nil {
			logger.Warnw("audit record failed", "error", err.Error())
		}
	}
	return summary, nil
}

// consolidateJournal groups stale journal days by ISO week, synthesizes
// a digest per week with >=1 entry, writes it, and deletes the source day
// entries.
func (e *Engine) consolidateJournal(ctx context.Context, tctx tenant.Context, now time.Time) (int, error) {
	if e.Synth == nil {
		return 0, nil
	}

	cutoff := now.Add(-e.Cfg.ConsolidationAge)
	filter := tenant.MakeFilter(tctx, store.RecordJournal, tenant.FilterOptions{})
	ictx, cancel := e.indexCtx(ctx)
	entries, err := e.Index.Scroll(ictx, filter, 10_000, "")
	cancel()
	if err != nil {
		return 0, errors.ErrStorage.WithCause(err)
	}

	weeks := make(map[string][]*model.JournalEntry)
	for _, rec := range entries {
		j, err := store.JournalFromPayload(rec.Payload)
		if err != nil || j.Gate == model.GateDigest {
			continue
		}
		if !j.Timestamp.Before(cutoff) {
			continue
		}
		year, week := j.Timestamp.UTC().ISOWeek()
		key := fmt.Sprintf("%04d-W%02d", year, week)
		weeks[key] = append(weeks[key], j)
	}

	keys := make([]string, 0, len(weeks))
	for k := range weeks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	digested := 0
	for _, week := range keys {
		items := weeks[week]
		if len(items) == 0 {
			continue
		}
		var sb strings.Builder
		for _, j := range items {
			fmt.Fprintf(&sb, "[%s] %s\n", j.Date, j.Content)
		}
		sctx, cancel := e.synthCtx(ctx)
		text, err := e.Synth.Synthesize(sctx, consolidationSystemPrompt, sb.String(), 512, "")
		cancel()
		if err != nil {
			logger.Warnw("digest synthesis failed", "error", err.Error(), "week", week)
			continue
		}

		digest := &model.JournalEntry{
			ID:        "jrn_digest_" + week + "_" + tctx.UserID,
			Timestamp: now,
			Gate:      model.GateDigest,
			Content:   text,
			Date:      week,
			UserID:    tenantUserID(tctx, items[0].UserID),
		}
		if err := e.upsertJournal(ctx, digest); err != nil {
			logger.Warnw("digest write failed", "error", err.Error(), "week", week)
			continue
		}

		if err := e.deleteJournalEntries(ctx, items); err != nil {
			logger.Warnw("digest source cleanup failed", "error", err.Error(), "week", week)
		}
		digested++
	}
	return digested, nil
}

func tenantUserID(tctx tenant.Context, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if tctx.HasTeam() {
		return tenant.TeamUserID(tctx.TeamID)
	}
	return tctx.UserID
}

func (e *Engine) deleteJournalEntries(ctx context.Context, items []*model.JournalEntry) error {
	ids := make([]string, len(items))
	for i, j := range items {
		ids[i] = j.ID
	}
	filter := store.Filter{Must: []store.Condition{
		store.Eq(store.FieldType, string(store.RecordJournal)),
		{Field: store.FieldID, Op: store.OpIn, Value: ids},
	}}
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	return e.Index.Delete(ictx, filter)
}

// pruneFading deletes every non-pinned memory whose decay score has
// fallen below the fading threshold.
func (e *Engine) pruneFading(ctx context.Context, tctx tenant.Context, now time.Time) (int, error) {
	filter := tenant.MakeFilter(tctx, store.RecordMemory, tenant.FilterOptions{})
	ictx, cancel := e.indexCtx(ctx)
	records, err := e.Index.Scroll(ictx, filter, 10_000, "")
	cancel()
	if err != nil {
		return 0, errors.ErrStorage.WithCause(err)
	}

	archived := 0
	for _, rec := range records {
		mem, err := store.MemoryFromPayload(rec.Payload)
		if err != nil || mem.Pinned {
			continue
		}
		if !e.isFadingMemoized(ctx, mem, now) {
			continue
		}
		delFilter := store.Filter{Must: []store.Condition{
			store.Eq(store.FieldType, string(store.RecordMemory)),
			store.Eq(store.FieldID, mem.ID),
			store.Eq(store.FieldUserID, mem.UserID),
		}}
		dctx, cancel := e.indexCtx(ctx)
		err = e.Index.Delete(dctx, delFilter)
		cancel()
		if err != nil {
			logger.Warnw("prune delete failed", "error", err.Error(), "memory_id", mem.ID)
			continue
		}
		archived++
	}
	return archived, nil
}

// decayCacheTTL bounds how long a memoized decay score survives a sweep;
// long enough to cover one Reflect pass, short enough that a later pass
// recomputes rather than trusting a stale access pattern.
const decayCacheTTL = 10 * time.Minute

// isFadingMemoized is IsFading with an optional DecayCache front: a
// memory's score rarely changes within a single fading scan, so a
// configured cache saves recomputing log2/pow for it on the next Reflect.
func (e *Engine) isFadingMemoized(ctx context.Context, mem *model.Memory, now time.Time) bool {
	if mem.DecayClass == model.DecayNever {
		return false
	}
	if e.DecayMemo == nil {
		return IsFading(mem, now, e.Cfg.FadingThreshold)
	}
	if score, ok := e.DecayMemo.Get(ctx, mem.ID); ok {
		return score < e.Cfg.FadingThreshold
	}
	score := DecayScore(mem, now)
	e.DecayMemo.Set(ctx, mem.ID, score, decayCacheTTL)
	return score < e.Cfg.FadingThreshold
}

// maybeRegenerateIdentity synthesizes a fresh IdentityCard when the
// journal has any entry within identityWindow, preserving the prior
// person/project.
func (e *Engine) maybeRegenerateIdentity(ctx context.Context, tctx tenant.Context, now time.Time) (bool, error) {
	if e.Synth == nil {
		return false, nil
	}

	cutoff := now.Add(-identityWindow)
	filter := tenant.MakeFilter(tctx, store.RecordJournal, tenant.FilterOptions{})
	ictx, cancel := e.indexCtx(ctx)
	entries, err := e.Index.Scroll(ictx, filter, 10_000, "")
	cancel()
	if err != nil {
		return false, errors.ErrStorage.WithCause(err)
	}

	var recent []*model.JournalEntry
	for _, rec := range entries {
		j, err := store.JournalFromPayload(rec.Payload)
		if err != nil {
			continue
		}
		if j.Timestamp.After(cutoff) {
			recent = append(recent, j)
		}
	}
	if len(recent) == 0 {
		return false, nil
	}

	sort.Slice(recent, func(i, j int) bool { return recent[i].Timestamp.Before(recent[j].Timestamp) })

	var sb strings.Builder
	for _, j := range recent {
		fmt.Fprintf(&sb, "[%s] %s\n", j.Date, j.Content)
	}

	prior, _ := e.getIdentity(ctx, tctx)

	sctx, cancel := e.synthCtx(ctx)
	text, err := e.Synth.Synthesize(sctx, identitySystemPrompt, sb.String(), 1024, "")
	cancel()
	if err != nil {
		return false, errors.ErrUpstream.WithCause(err)
	}
	if len(text) > model.MaxIdentityContentLength {
		text = text[:model.MaxIdentityContentLength]
	}

	card := &model.IdentityCard{
		Content:     text,
		LastUpdated: now,
		UserID:      tenantUserID(tctx, ""),
	}
	if prior != nil {
		card.Person = prior.Person
		card.Project = prior.Project
	}
	if err := e.upsertIdentity(ctx, card); err != nil {
		return false, errors.ErrStorage.WithCause(err)
	}
	return true, nil
}

func (e *Engine) upsertIdentity(ctx context.Context, c *model.IdentityCard) error {
	payload := store.IdentityToPayload(c)
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	return e.Index.Upsert(ictx, "identity_"+c.UserID, nil, nil, payload)
}

func (e *Engine) getIdentity(ctx context.Context, tctx tenant.Context) (*model.IdentityCard, error) {
	filter := tenant.MakeFilter(tctx, store.RecordIdentity, tenant.FilterOptions{})
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	records, err := e.Index.Scroll(ictx, filter, 1, "")
	if err != nil {
		return nil, errors.ErrStorage.WithCause(err)
	}
	if len(records) == 0 {
		return nil, errors.ErrNotFound.WithMessage("identity card not found")
	}
	return store.IdentityFromPayload(records[0].Payload)
}

// Classify is the batch form of Remember's sensitivity step: iterate
// over the tenant's memories (unclassified only, unless force is set) and
// persist a sensitivity verdict for each.
func (e *Engine) Classify(ctx context.Context, tctx tenant.Context, force bool) (int, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Classify")
	defer span.End()

	if e.Synth == nil {
		return 0, errors.ErrConfig.WithMessage("classify requires a configured synthesizer")
	}

	filter := tenant.MakeFilter(tctx, store.RecordMemory, tenant.FilterOptions{})
	ictx, cancel := e.indexCtx(ctx)
	records, err := e.Index.Scroll(ictx, filter, 10_000, "")
	cancel()
	if err != nil {
		return 0, errors.ErrStorage.WithCause(err)
	}

	classified := 0
	for _, rec := range records {
		mem, err := store.MemoryFromPayload(rec.Payload)
		if err != nil {
			continue
		}
		if !force && mem.Sensitivity != model.SensitivityUnset {
			continue
		}
		level, reason, err := e.classifyContent(ctx, mem.Content)
		if err != nil {
			logger.Warnw("sensitivity classification failed", "error", err.Error(), "memory_id", mem.ID)
			continue
		}
		if level == model.SensitivityUnknown || level == model.SensitivityUnset {
			continue
		}
		// Unlike the per-write pass, the batch persists safe verdicts too,
		// so a memory classified safe leaves the unclassified pool instead
		// of being re-scanned on every run.
		if err := e.setMemoryFields(ctx, tctx, mem.ID, map[string]any{
			store.FieldSensitivity: string(level),
			"sensitivity_reason":   reason,
		}); err != nil {
			logger.Warnw("persist sensitivity failed", "error", err.Error(), "memory_id", mem.ID)
			continue
		}
		classified++
	}
	return classified, nil
}

// Reclassify runs sensitivity classification for exactly one memory.
func (e *Engine) Reclassify(ctx context.Context, tctx tenant.Context, memoryID string) (model.Sensitivity, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Reclassify")
	defer span.End()

	mem, err := e.getMemoryByID(ctx, tctx, memoryID)
	if err != nil {
		return "", err
	}
	level, reason, err := e.classifyContent(ctx, mem.Content)
	if err != nil {
		return "", err
	}
	if err := e.setMemoryFields(ctx, tctx, mem.ID, map[string]any{
		store.FieldSensitivity: string(level),
		"sensitivity_reason":   reason,
	}); err != nil {
		return "", errors.ErrStorage.WithCause(err)
	}
	return level, nil
}
