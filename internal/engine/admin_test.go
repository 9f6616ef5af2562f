package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/tenant"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestListMemories_NewestFirst(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}
	base := e.now()

	withClock(e, base)
	msg1, err := e.Remember(ctx, tctx, RememberInput{Content: "first note written", Gate: "behavioral"})
	require.NoError(t, err)
	id1 := extractID(t, msg1)

	withClock(e, base.AddDate(0, 0, 1))
	msg2, err := e.Remember(ctx, tctx, RememberInput{Content: "second note written later", Gate: "behavioral"})
	require.NoError(t, err)
	id2 := extractID(t, msg2)

	mems, err := e.ListMemories(ctx, tctx, tenant.FilterOptions{})
	require.NoError(t, err)
	require.Len(t, mems, 2)
	require.Equal(t, id2, mems[0].ID)
	require.Equal(t, id1, mems[1].ID)
}

func TestForget_RemovesMemoryOutright(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "throwaway note", Gate: "behavioral"})
	require.NoError(t, err)
	id := extractID(t, msg)

	require.NoError(t, e.Forget(ctx, tctx, id))

	_, err = e.GetMemory(ctx, tctx, id)
	require.Error(t, err)
}

func TestPinUnpin_RoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "note worth keeping forever", Gate: "behavioral"})
	require.NoError(t, err)
	id := extractID(t, msg)

	require.NoError(t, e.Pin(ctx, tctx, id))
	mem, err := e.GetMemory(ctx, tctx, id)
	require.NoError(t, err)
	require.True(t, mem.Pinned)

	require.NoError(t, e.Unpin(ctx, tctx, id))
	mem, err = e.GetMemory(ctx, tctx, id)
	require.NoError(t, err)
	require.False(t, mem.Pinned)
}

func TestUpdateMemory_ReembedsOnContentChange(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "old wording about onboarding flow", Gate: "epistemic"})
	require.NoError(t, err)
	id := extractID(t, msg)

	err = e.UpdateMemory(ctx, tctx, id, MemoryUpdate{Content: strPtr("new wording about deployment flow")})
	require.NoError(t, err)

	mem, err := e.GetMemory(ctx, tctx, id)
	require.NoError(t, err)
	require.Equal(t, "new wording about deployment flow", mem.Content)

	lines, err := e.Recall(ctx, tctx, "deployment flow")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], id)
}

func TestUpdateMemory_PersonAndPinnedOnly(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "a note about a teammate", Gate: "relational"})
	require.NoError(t, err)
	id := extractID(t, msg)

	err = e.UpdateMemory(ctx, tctx, id, MemoryUpdate{Person: strPtr("Dana"), Pinned: boolPtr(true)})
	require.NoError(t, err)

	mem, err := e.GetMemory(ctx, tctx, id)
	require.NoError(t, err)
	require.Equal(t, "Dana", mem.Person)
	require.True(t, mem.Pinned)
	require.Equal(t, "a note about a teammate", mem.Content)
}

func TestScan_GroupsByGateAndSensitivity(t *testing.T) {
	e, synth := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}
	synth.sensitivity["rotate the prod key"] = "critical: shares a live credential"

	_, err := e.Remember(ctx, tctx, RememberInput{Content: "a behavioral preference note", Gate: "behavioral"})
	require.NoError(t, err)
	_, err = e.Remember(ctx, tctx, RememberInput{Content: "remember to rotate the prod key", Gate: "promissory"})
	require.NoError(t, err)

	report, err := e.Scan(ctx, tctx, ScanOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, report.Total)
	require.Equal(t, 1, report.ByGate[model.GateBehavioral])
	require.Equal(t, 1, report.ByGate[model.GatePromissory])
	require.Equal(t, 1, report.BySensitivity[model.SensitivityCritical])
	require.Equal(t, 1, report.BySensitivity[model.SensitivityUnset], "a safe verdict is never persisted, so the memory stays unset")
}

// Migrate's count invariant: count(to).after == count(to).before +
// count(from).before, and count(from).after == 0.
func TestMigrate_PreservesCountInvariant(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	from := tenant.Context{UserID: "u1"}
	to := tenant.Context{UserID: "u2"}

	_, err := e.Remember(ctx, from, RememberInput{Content: "memory staying with u1 then moving", Gate: "behavioral"})
	require.NoError(t, err)
	_, err = e.Remember(ctx, from, RememberInput{Content: "second memory under u1 also moving", Gate: "epistemic"})
	require.NoError(t, err)
	_, err = e.Remember(ctx, to, RememberInput{Content: "a memory already owned by u2", Gate: "behavioral"})
	require.NoError(t, err)

	fromBefore, err := e.ListMemories(ctx, from, tenant.FilterOptions{})
	require.NoError(t, err)
	toBefore, err := e.ListMemories(ctx, to, tenant.FilterOptions{})
	require.NoError(t, err)

	moved, err := e.Migrate(ctx, from, to)
	require.NoError(t, err)
	// Every Remember files one journal entry alongside its memory, and
	// Migrate reassigns both record types.
	require.Equal(t, 2*len(fromBefore), moved)

	fromAfter, err := e.ListMemories(ctx, from, tenant.FilterOptions{})
	require.NoError(t, err)
	require.Len(t, fromAfter, 0)

	toAfter, err := e.ListMemories(ctx, to, tenant.FilterOptions{})
	require.NoError(t, err)
	require.Len(t, toAfter, len(toBefore)+len(fromBefore))
}

func TestTeamMemoriesList_OnlyTeamVisibility(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	member := tenant.Context{UserID: "u1", TeamID: "teamA"}

	_, err := e.Remember(ctx, member, RememberInput{
		Content: "team-visible rollout plan", Gate: "epistemic",
		Visibility: model.VisibilityTeam, TeamID: "teamA",
	})
	require.NoError(t, err)
	_, err = e.Remember(ctx, member, RememberInput{Content: "u1's own private note", Gate: "behavioral"})
	require.NoError(t, err)

	mems, err := e.TeamMemoriesList(ctx, "teamA")
	require.NoError(t, err)
	require.Len(t, mems, 1)
	require.Equal(t, model.VisibilityTeam, mems[0].Visibility)
}
