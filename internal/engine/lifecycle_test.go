package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/store"
	"github.com/kart-io/memoryctl/internal/tenant"
)

func seedMemory(t *testing.T, e *Engine, tctx tenant.Context, m *model.Memory) {
	t.Helper()
	payload, err := store.MemoryToPayload(m)
	require.NoError(t, err)
	ctx := context.Background()
	dense, _, err := e.embedContent(ctx, m.Content)
	require.NoError(t, err)
	require.NoError(t, e.Index.Upsert(ctx, m.ID, dense, nil, payload))
}

func TestDecayScore_NeverClassIgnoresAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := &model.Memory{
		DecayClass:   model.DecayNever,
		AccessCount:  0,
		LastAccessed: now.Add(-1000 * 24 * time.Hour),
	}
	require.Equal(t, 0.0, DecayScore(m, now))
	require.False(t, IsFading(m, now, 0.05))
}

func TestDecayScore_ZeroAccessCountIsZeroScore(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := &model.Memory{
		DecayClass:   model.DecaySlow,
		AccessCount:  0,
		LastAccessed: now,
	}
	require.Equal(t, 0.0, DecayScore(m, now))
}

func TestDecayScore_Formula(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := &model.Memory{
		DecayClass:   model.DecayFast,
		AccessCount:  1,
		LastAccessed: now.Add(-200 * 24 * time.Hour),
	}
	want := math.Pow(0.5, 200.0/30.0) * math.Log2(2)
	require.InDelta(t, want, DecayScore(m, now), 1e-9)
	require.True(t, IsFading(m, now, 0.05))
}

func TestReflect_PrunesFadingMemoryAndReportsCount(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withClock(e, now)

	seedMemory(t, e, tctx, &model.Memory{
		ID:           "mem_fading",
		Created:      now.Add(-200 * 24 * time.Hour),
		LastAccessed: now.Add(-200 * 24 * time.Hour),
		AccessCount:  1,
		Gate:         model.GateBehavioral,
		DecayClass:   model.DecayClassFor(model.GateBehavioral),
		Content:      "stale behavioral note",
		Visibility:   model.VisibilityPrivate,
		UserID:       "u1",
	})

	report, err := e.Reflect(ctx, tctx)
	require.NoError(t, err)
	require.Contains(t, report, "Archived 1 fading memories")

	_, err = e.GetMemory(ctx, tctx, "mem_fading")
	require.Error(t, err)
}

func TestReflect_PinnedMemoryNeverPruned(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withClock(e, now)

	seedMemory(t, e, tctx, &model.Memory{
		ID:           "mem_pinned",
		Created:      now.Add(-400 * 24 * time.Hour),
		LastAccessed: now.Add(-400 * 24 * time.Hour),
		AccessCount:  1,
		Gate:         model.GateBehavioral,
		DecayClass:   model.DecayClassFor(model.GateBehavioral),
		Pinned:       true,
		Content:      "ancient but pinned note",
		Visibility:   model.VisibilityPrivate,
		UserID:       "u1",
	})

	report, err := e.Reflect(ctx, tctx)
	require.NoError(t, err)
	require.Contains(t, report, "Archived 0 fading memories")

	mem, err := e.GetMemory(ctx, tctx, "mem_pinned")
	require.NoError(t, err)
	require.True(t, mem.Pinned)
}

func TestReflect_ConsolidatesStaleJournalWeek(t *testing.T) {
	e, synth := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withClock(e, now)

	stale := now.Add(-20 * 24 * time.Hour)
	j := &model.JournalEntry{
		ID:        "jrn_stale_1",
		Timestamp: stale,
		Gate:      model.GateBehavioral,
		Content:   "a stale journal entry",
		Date:      stale.Format("2006-01-02"),
		UserID:    "u1",
	}
	payload := store.JournalToPayload(j)
	require.NoError(t, e.Index.Upsert(ctx, j.ID, nil, nil, payload))

	report, err := e.Reflect(ctx, tctx)
	require.NoError(t, err)
	require.Contains(t, report, "Consolidated 1 week(s) into digests")
	require.NotEmpty(t, synth.calls)

	recs, err := e.Index.Scroll(ctx, store.Filter{Must: []store.Condition{
		store.Eq(store.FieldType, string(store.RecordJournal)),
		store.Eq(store.FieldID, j.ID),
	}}, 0, "")
	require.NoError(t, err)
	require.Empty(t, recs, "source journal entry should be deleted after consolidation")
}

func TestClassify_SkipsAlreadyClassifiedUnlessForced(t *testing.T) {
	e, synth := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}
	synth.sensitivity["rotate the prod key"] = "critical: shares a live credential"

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "remember to rotate the prod key", Gate: "promissory"})
	require.NoError(t, err)
	id := extractID(t, msg)

	n, err := e.Classify(ctx, tctx, false)
	require.NoError(t, err)
	require.Equal(t, 0, n, "already-classified memory should be skipped without force")

	n, err = e.Classify(ctx, tctx, true)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	mem, err := e.GetMemory(ctx, tctx, id)
	require.NoError(t, err)
	require.Equal(t, model.SensitivityCritical, mem.Sensitivity)
}

// The batch pass persists safe verdicts, so a memory classified safe is
// not re-scanned by the next run.
func TestClassify_PersistsSafeVerdict(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "a plain note about lunch plans", Gate: "behavioral"})
	require.NoError(t, err)
	id := extractID(t, msg)

	mem, err := e.GetMemory(ctx, tctx, id)
	require.NoError(t, err)
	require.Equal(t, model.SensitivityUnset, mem.Sensitivity, "the per-write pass leaves safe verdicts unpersisted")

	n, err := e.Classify(ctx, tctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	mem, err = e.GetMemory(ctx, tctx, id)
	require.NoError(t, err)
	require.Equal(t, model.SensitivitySafe, mem.Sensitivity)

	n, err = e.Classify(ctx, tctx, false)
	require.NoError(t, err)
	require.Equal(t, 0, n, "a persisted safe verdict leaves nothing to classify")
}

func TestReclassify_SingleMemory(t *testing.T) {
	e, synth := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "a plain note about lunch plans", Gate: "behavioral"})
	require.NoError(t, err)
	id := extractID(t, msg)

	synth.sensitivity["lunch plans"] = "sensitive: mentions a personal schedule"

	level, err := e.Reclassify(ctx, tctx, id)
	require.NoError(t, err)
	require.Equal(t, model.SensitivitySensitive, level)
}
