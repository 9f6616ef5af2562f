package engine

import (
	"context"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/store"
	"github.com/kart-io/memoryctl/internal/tenant"
	"github.com/kart-io/memoryctl/pkg/errors"
)

// RelatedHop is one BFS discovery in FindRelated's traversal order.
type RelatedHop struct {
	ID       string
	Content  string
	Gate     model.Gate
	Relation model.Relation
	Depth    int
}

// AddEdge is the graph overlay's single mutation: read the source
// memory, dedup by (to_id, relation), append, write back. This is
// last-writer-wins across concurrent callers on the same source —
// acceptable because edges are a retrieval aid, not a correctness
// invariant.
func (e *Engine) AddEdge(ctx context.Context, tctx tenant.Context, fromID, toID string, relation model.Relation) error {
	mem, err := e.getMemoryByID(ctx, tctx, fromID)
	if err != nil {
		return err
	}
	if mem.HasEdge(toID, relation) {
		return nil
	}
	mem.Edges = append(mem.Edges, model.Edge{ToID: toID, Relation: relation})

	payload, err := store.MemoryToPayload(mem)
	if err != nil {
		return errors.ErrStorage.WithCause(err)
	}
	filter := store.Filter{Must: []store.Condition{
		store.Eq(store.FieldType, string(store.RecordMemory)),
		store.Eq(store.FieldID, fromID),
		store.Eq(store.FieldUserID, mem.UserID),
	}}
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	if err := e.Index.SetPayload(ictx, filter, map[string]any{"edges_json": payload["edges_json"]}); err != nil {
		return errors.ErrStorage.WithCause(err)
	}
	return nil
}

// FindRelated does a breadth-first traversal from startID, bounded by
// depth, following any edge type. Cycles are prevented by a visited set
// seeded with startID; the result is in BFS discovery order.
func (e *Engine) FindRelated(ctx context.Context, tctx tenant.Context, startID string, depth int) ([]RelatedHop, error) {
	visited := map[string]bool{startID: true}
	type frontierNode struct {
		id  string
		dep int
	}
	frontier := []frontierNode{{id: startID, dep: 0}}
	var out []RelatedHop

	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]
		if node.dep >= depth {
			continue
		}
		mem, err := e.getMemoryByID(ctx, tctx, node.id)
		if err != nil {
			continue
		}
		for _, edge := range mem.Edges {
			if visited[edge.ToID] {
				continue
			}
			visited[edge.ToID] = true
			neighbour, err := e.getMemoryByID(ctx, tctx, edge.ToID)
			if err != nil {
				continue
			}
			out = append(out, RelatedHop{
				ID:       neighbour.ID,
				Content:  neighbour.Content,
				Gate:     neighbour.Gate,
				Relation: edge.Relation,
				Depth:    node.dep + 1,
			})
			frontier = append(frontier, frontierNode{id: edge.ToID, dep: node.dep + 1})
		}
	}
	return out, nil
}

// getMemoryByID fetches one memory by its domain id, trying the caller's
// private scope first and, if ctx carries a team, retrying in the team
// scope, so graph traversal and edge writes work across a team-visibility
// memory.
func (e *Engine) getMemoryByID(ctx context.Context, tctx tenant.Context, memID string) (*model.Memory, error) {
	if mem, err := e.scrollOneMemory(ctx, tctx, tenant.FilterOptions{}, memID); err == nil {
		return mem, nil
	}
	if tctx.HasTeam() {
		if mem, err := e.scrollOneMemory(ctx, tctx, tenant.FilterOptions{Visibility: "team"}, memID); err == nil {
			return mem, nil
		}
	}
	return nil, errors.ErrNotFound.WithMessagef("memory %s not found", memID)
}

func (e *Engine) scrollOneMemory(ctx context.Context, tctx tenant.Context, opts tenant.FilterOptions, memID string) (*model.Memory, error) {
	filter := tenant.MakeFilter(tctx, store.RecordMemory, opts)
	filter.Must = append(filter.Must, store.Eq(store.FieldID, memID))

	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	records, err := e.Index.Scroll(ictx, filter, 1, "")
	if err != nil {
		return nil, errors.ErrStorage.WithCause(err)
	}
	if len(records) == 0 {
		return nil, errors.ErrNotFound.WithMessagef("memory %s not found", memID)
	}
	return store.MemoryFromPayload(records[0].Payload)
}
