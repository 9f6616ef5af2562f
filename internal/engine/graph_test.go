package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/tenant"
)

func mustRemember(t *testing.T, e *Engine, ctx context.Context, tctx tenant.Context, in RememberInput) string {
	t.Helper()
	msg, err := e.Remember(ctx, tctx, in)
	require.NoError(t, err)
	return extractID(t, msg)
}

// AddEdge(a,b,r) twice leaves exactly one edge.
func TestAddEdge_Idempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	idA := mustRemember(t, e, ctx, tctx, RememberInput{Content: "first memory entirely unrelated", Gate: "epistemic"})
	idB := mustRemember(t, e, ctx, tctx, RememberInput{Content: "second memory also unrelated", Gate: "epistemic"})

	require.NoError(t, e.AddEdge(ctx, tctx, idA, idB, model.RelationFollows))
	require.NoError(t, e.AddEdge(ctx, tctx, idA, idB, model.RelationFollows))

	mem, err := e.GetMemory(ctx, tctx, idA)
	require.NoError(t, err)
	count := 0
	for _, edge := range mem.Edges {
		if edge.ToID == idB && edge.Relation == model.RelationFollows {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestFindRelated_BFSOrderAndDepth(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	idA := mustRemember(t, e, ctx, tctx, RememberInput{Content: "root memory", Gate: "epistemic"})
	idB := mustRemember(t, e, ctx, tctx, RememberInput{Content: "one hop away", Gate: "epistemic"})
	idC := mustRemember(t, e, ctx, tctx, RememberInput{Content: "two hops away", Gate: "epistemic"})

	require.NoError(t, e.AddEdge(ctx, tctx, idA, idB, model.RelationFollows))
	require.NoError(t, e.AddEdge(ctx, tctx, idB, idC, model.RelationContradicts))

	hops, err := e.FindRelated(ctx, tctx, idA, 2)
	require.NoError(t, err)
	require.Len(t, hops, 2)
	require.Equal(t, idB, hops[0].ID)
	require.Equal(t, 1, hops[0].Depth)
	require.Equal(t, idC, hops[1].ID)
	require.Equal(t, 2, hops[1].Depth)

	shallow, err := e.FindRelated(ctx, tctx, idA, 1)
	require.NoError(t, err)
	require.Len(t, shallow, 1)
	require.Equal(t, idB, shallow[0].ID)
}

func TestFindRelated_CyclesDoNotLoop(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	idA := mustRemember(t, e, ctx, tctx, RememberInput{Content: "cycle node a", Gate: "epistemic"})
	idB := mustRemember(t, e, ctx, tctx, RememberInput{Content: "cycle node b", Gate: "epistemic"})

	require.NoError(t, e.AddEdge(ctx, tctx, idA, idB, model.RelationFollows))
	require.NoError(t, e.AddEdge(ctx, tctx, idB, idA, model.RelationFollows))

	hops, err := e.FindRelated(ctx, tctx, idA, 5)
	require.NoError(t, err)
	require.Len(t, hops, 1)
	require.Equal(t, idB, hops[0].ID)
}

// Recall's graph-expansion stage: when fewer than 3 direct hits are
// found, neighbours reachable from the first two surface with a
// [graph: RELATION] tag.
func TestRecall_GraphExpansionSurfacesNeighbour(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	idA := mustRemember(t, e, ctx, tctx, RememberInput{Content: "quarterly planning kickoff notes", Gate: "epistemic"})
	idB := mustRemember(t, e, ctx, tctx, RememberInput{Content: "totally unrelated grocery list", Gate: "behavioral"})

	require.NoError(t, e.AddEdge(ctx, tctx, idA, idB, model.RelationFollows))

	lines, err := e.Recall(ctx, tctx, "quarterly planning kickoff")
	require.NoError(t, err)
	require.Len(t, lines, 2)

	var sawGraphTag bool
	for _, l := range lines {
		if strings.Contains(l, "[graph: FOLLOWS]") && strings.Contains(l, idB) {
			sawGraphTag = true
		}
	}
	require.True(t, sawGraphTag, "expected a graph-tagged neighbour line: %v", lines)
}
