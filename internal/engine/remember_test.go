package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/tenant"
	"github.com/kart-io/memoryctl/pkg/errors"
)

func newTestEngine(t *testing.T) (*Engine, *fakeSynthesizer) {
	t.Helper()
	synth := newFakeSynthesizer()
	e := New(newFakeIndex(), newFakeEmbedder(), synth, Config{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return now }
	return e, synth
}

func withClock(e *Engine, t time.Time) { e.Now = func() time.Time { return t } }

func TestRemember_ValidationFailures(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	t.Run("invalid gate", func(t *testing.T) {
		_, err := e.Remember(ctx, tctx, RememberInput{Content: "hi", Gate: "nonsense"})
		require.Error(t, err)
		require.True(t, errors.IsKind(err, errors.KindValidation))
	})

	t.Run("empty content", func(t *testing.T) {
		_, err := e.Remember(ctx, tctx, RememberInput{Content: "", Gate: "behavioral"})
		require.Error(t, err)
		require.True(t, errors.IsKind(err, errors.KindValidation))
	})

	t.Run("oversize content", func(t *testing.T) {
		huge := strings.Repeat("a", model.MaxContentLength+1)
		_, err := e.Remember(ctx, tctx, RememberInput{Content: huge, Gate: "behavioral"})
		require.Error(t, err)
		require.True(t, errors.IsKind(err, errors.KindValidation))
	})

	t.Run("team visibility without team id", func(t *testing.T) {
		_, err := e.Remember(ctx, tctx, RememberInput{Content: "hi", Gate: "behavioral", Visibility: model.VisibilityTeam})
		require.Error(t, err)
		require.True(t, errors.IsKind(err, errors.KindConfig))
	})
}

// A write followed by a recall round-trips the same id and bumps
// access_count to 2.
func TestRemember_WriteAndRecallRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "I prefer tabs over spaces", Gate: "behavioral"})
	require.NoError(t, err)
	require.Contains(t, msg, "Remembered [behavioral]")

	id := extractID(t, msg)

	mem, err := e.GetMemory(ctx, tctx, id)
	require.NoError(t, err)
	require.Equal(t, "I prefer tabs over spaces", mem.Content)
	require.Equal(t, model.GateBehavioral, mem.Gate)
	require.Equal(t, 1, mem.AccessCount)

	lines, err := e.Recall(ctx, tctx, "tabs")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], id)

	after, err := e.GetMemory(ctx, tctx, id)
	require.NoError(t, err)
	require.Equal(t, 2, after.AccessCount)
	require.True(t, after.LastAccessed.After(mem.LastAccessed) || after.LastAccessed.Equal(mem.LastAccessed))
}

// A correction write supersedes a prior epistemic memory, halving its
// confidence and wiring a CONTRADICTS edge.
func TestRemember_CorrectionHalvesConfidenceAndLinksEdge(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	msgA, err := e.Remember(ctx, tctx, RememberInput{Content: "The API uses REST over HTTP", Gate: "epistemic"})
	require.NoError(t, err)
	idA := extractID(t, msgA)

	msgB, err := e.Remember(ctx, tctx, RememberInput{Content: "Actually the API uses gRPC over HTTP", Gate: "correction"})
	require.NoError(t, err)
	idB := extractID(t, msgB)

	a, err := e.GetMemory(ctx, tctx, idA)
	require.NoError(t, err)
	require.InDelta(t, 0.45, a.Confidence, 1e-9)

	b, err := e.GetMemory(ctx, tctx, idB)
	require.NoError(t, err)
	require.True(t, b.HasEdge(idA, model.RelationContradicts))
}

// Two memories sharing a person within 24h get a FOLLOWS edge from the
// second to the first.
func TestRemember_FollowsChainWithinWindow(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	withClock(e, base)
	msg1, err := e.Remember(ctx, tctx, RememberInput{Content: "Alice prefers async standups", Gate: "relational", Person: "Alice"})
	require.NoError(t, err)
	id1 := extractID(t, msg1)

	withClock(e, base.Add(30*time.Minute))
	msg2, err := e.Remember(ctx, tctx, RememberInput{Content: "Alice is moving teams next quarter", Gate: "relational", Person: "Alice"})
	require.NoError(t, err)
	id2 := extractID(t, msg2)

	second, err := e.GetMemory(ctx, tctx, id2)
	require.NoError(t, err)
	require.True(t, second.HasEdge(id1, model.RelationFollows))
}

func TestRemember_FollowsChainOutsideWindowDoesNotLink(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	withClock(e, base)
	msg1, err := e.Remember(ctx, tctx, RememberInput{Content: "Bob likes long code reviews", Gate: "relational", Person: "Bob"})
	require.NoError(t, err)
	id1 := extractID(t, msg1)

	withClock(e, base.Add(25*time.Hour))
	msg2, err := e.Remember(ctx, tctx, RememberInput{Content: "Bob switched to short code reviews", Gate: "relational", Person: "Bob"})
	require.NoError(t, err)
	id2 := extractID(t, msg2)

	second, err := e.GetMemory(ctx, tctx, id2)
	require.NoError(t, err)
	require.False(t, second.HasEdge(id1, model.RelationFollows))
}

// A near-duplicate write is flagged: the prior memory ranks first in
// both prefetch legs, so its fused score clears the 0.85 advisory
// threshold.
func TestRemember_HighSimilarityWarning(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	_, err := e.Remember(ctx, tctx, RememberInput{Content: "the deploy pipeline runs nightly", Gate: "epistemic"})
	require.NoError(t, err)

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "the deploy pipeline runs nightly after midnight", Gate: "epistemic"})
	require.NoError(t, err)
	require.Contains(t, msg, "high similarity")
}

func TestRemember_PIIWarning(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "contact me at jane@example.com", Gate: "behavioral"})
	require.NoError(t, err)
	require.Contains(t, msg, "email")
}

func TestRemember_SensitivityClassificationPersisted(t *testing.T) {
	e, synth := newTestEngine(t)
	synth.sensitivity["rotate the prod key"] = "critical: shares a live credential"
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "remember to rotate the prod key", Gate: "promissory"})
	require.NoError(t, err)
	require.Contains(t, msg, "critical")

	id := extractID(t, msg)
	mem, err := e.GetMemory(ctx, tctx, id)
	require.NoError(t, err)
	require.Equal(t, model.SensitivityCritical, mem.Sensitivity)
}

// Tenant isolation: a write under one user is invisible to Recall under
// another.
func TestRecall_TenantIsolation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	u1 := tenant.Context{UserID: "u1"}
	u2 := tenant.Context{UserID: "u2"}

	_, err := e.Remember(ctx, u1, RememberInput{Content: "u1's private note about onboarding", Gate: "epistemic"})
	require.NoError(t, err)

	lines, err := e.Recall(ctx, u2, "onboarding")
	require.NoError(t, err)
	require.Equal(t, []string{NoMemoriesFound}, lines)

	lines, err = e.Recall(ctx, u1, "onboarding")
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

// A team-visibility write is readable by a team member's Recall (tagged
// [team]) and invisible to a non-member's private Recall.
func TestRecall_TeamVisibility(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	member := tenant.Context{UserID: "u1", TeamID: "teamA"}
	nonMember := tenant.Context{UserID: "u2"}

	_, err := e.Remember(ctx, member, RememberInput{
		Content: "release cadence moves to weekly",
		Gate:    "epistemic", Visibility: model.VisibilityTeam, TeamID: "teamA",
	})
	require.NoError(t, err)

	lines, err := e.Recall(ctx, member, "release cadence")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "[team]")

	lines, err = e.Recall(ctx, nonMember, "release cadence")
	require.NoError(t, err)
	require.Equal(t, []string{NoMemoriesFound}, lines)
}

func extractID(t *testing.T, msg string) string {
	t.Helper()
	const marker = "(id: "
	idx := strings.Index(msg, marker)
	require.GreaterOrEqual(t, idx, 0, "message missing id marker: %s", msg)
	rest := msg[idx+len(marker):]
	end := strings.IndexByte(rest, ')')
	require.GreaterOrEqual(t, end, 0, "message missing closing paren: %s", msg)
	return rest[:end]
}
