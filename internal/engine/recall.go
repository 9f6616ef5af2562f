package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/store"
	"github.com/kart-io/memoryctl/internal/tenant"
	"github.com/kart-io/memoryctl/pkg/infra/pool"
	tracing "github.com/kart-io/memoryctl/pkg/infra/tracing"
)

// NoMemoriesFound is the canonical sentinel Recall returns when every
// stage (hybrid, lexical, graph) comes back empty.
const NoMemoriesFound = "No memories found."

// RecallHit is one line of a Recall result before formatting: either a
// direct hit (Score set) or a graph neighbour (GraphRelation set).
type RecallHit struct {
	Memory        *model.Memory
	Score         float64
	HasScore      bool
	GraphRelation model.Relation
	Scope         string // "private" or "team"
}

// Recall runs the hybrid search -> lexical fallback -> graph expansion
// pipeline and returns the formatted display lines in order.
func (e *Engine) Recall(ctx context.Context, tctx tenant.Context, query string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Recall")
	defer span.End()

	hits, err := e.recallHits(ctx, tctx, query)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []string{NoMemoriesFound}, nil
	}

	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = e.renderHit(tctx, h)
	}
	return lines, nil
}

// recallHits drives the retrieval stages and returns the raw hits Recall
// renders, useful on its own for tests asserting on structured data.
func (e *Engine) recallHits(ctx context.Context, tctx tenant.Context, query string) ([]RecallHit, error) {
	hits, err := e.offloadHybridStage(ctx, tctx, query)
	if err != nil {
		logger.Warnw("hybrid search failed, falling back to lexical", "error", err.Error())
		hits = nil
	}

	if len(hits) == 0 {
		lexHits, err := e.lexicalStage(ctx, tctx, query)
		if err != nil {
			logger.Warnw("lexical fallback failed", "error", err.Error())
		} else {
			hits = lexHits
		}
	}

	if len(hits) < 3 {
		graphHits := e.graphStage(ctx, tctx, hits)
		hits = append(hits, graphHits...)
	}

	return hits, nil
}

// offloadHybridStage runs hybridStage on the background worker pool so
// the caller's goroutine is not blocked on native index client calls. If
// the pool rejects the submit (e.g. a test tearing pools down) it falls
// back to running inline.
func (e *Engine) offloadHybridStage(ctx context.Context, tctx tenant.Context, query string) ([]RecallHit, error) {
	type result struct {
		hits []RecallHit
		err  error
	}
	done := make(chan result, 1)

	submitErr := pool.SubmitToWithContext(ctx, string(pool.BackgroundPool), func() {
		hits, err := e.hybridStage(ctx, tctx, query)
		done <- result{hits: hits, err: err}
	})
	if submitErr != nil {
		return e.hybridStage(ctx, tctx, query)
	}

	select {
	case r := <-done:
		return r.hits, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// hybridStage is the primary stage: RRF-fused dense/sparse search, then
// materialize + touch each hit.
func (e *Engine) hybridStage(ctx context.Context, tctx tenant.Context, query string) ([]RecallHit, error) {
	points, err := e.hybridSearch(ctx, tctx, query, e.Cfg.RecallLimit, tenant.FilterOptions{}, "")
	if err != nil {
		return nil, err
	}
	hits := make([]RecallHit, 0, len(points))
	for _, p := range points {
		mem, scope, err := e.materialize(ctx, tctx, p.PointID, p.Payload)
		if err != nil {
			continue
		}
		hits = append(hits, RecallHit{Memory: mem, Score: p.Score, HasScore: true, Scope: scope})
	}
	return hits, nil
}

// lexicalStage is a word-tokenized full-text fallback, limit 5, used
// only when the hybrid stage produced zero results.
func (e *Engine) lexicalStage(ctx context.Context, tctx tenant.Context, query string) ([]RecallHit, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	filter := tenant.MakeFilter(tctx, store.RecordMemory, tenant.FilterOptions{})
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	points, err := e.Index.TextSearch(ictx, filter, tokens, 5)
	if err != nil {
		return nil, err
	}
	hits := make([]RecallHit, 0, len(points))
	for _, p := range points {
		mem, scope, err := e.materialize(ctx, tctx, p.PointID, p.Payload)
		if err != nil {
			continue
		}
		hits = append(hits, RecallHit{Memory: mem, Scope: scope})
	}
	return hits, nil
}

// graphStage expands thin result sets: BFS from the first two hits up
// to depth 2, appending distinct neighbours not already present.
func (e *Engine) graphStage(ctx context.Context, tctx tenant.Context, hits []RecallHit) []RecallHit {
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		seen[h.Memory.ID] = true
	}

	seeds := hits
	if len(seeds) > 2 {
		seeds = seeds[:2]
	}

	var extra []RecallHit
	for _, seed := range seeds {
		related, err := e.FindRelated(ctx, tctx, seed.Memory.ID, 2)
		if err != nil {
			continue
		}
		for _, r := range related {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			mem, scope, err := e.getMemoryWithScope(ctx, tctx, r.ID)
			if err != nil {
				continue
			}
			extra = append(extra, RecallHit{Memory: mem, GraphRelation: r.Relation, Scope: scope})
		}
	}
	return extra
}

// materialize decodes a payload already in hand and touches the hit
// (last_accessed/access_count), scoping the touch write to the scope the
// point was actually found under.
func (e *Engine) materialize(ctx context.Context, tctx tenant.Context, pointID string, payload map[string]any) (*model.Memory, string, error) {
	mem, err := store.MemoryFromPayload(payload)
	if err != nil {
		return nil, "", err
	}
	scope := "private"
	if tctx.HasTeam() && mem.UserID == tenant.TeamUserID(tctx.TeamID) {
		scope = "team"
	}
	e.touch(ctx, mem)
	return mem, scope, nil
}

// getMemoryWithScope fetches a memory by id (private scope, falling back
// to team scope) for graph neighbours that weren't already materialized
// with a payload in hand, and touches it.
func (e *Engine) getMemoryWithScope(ctx context.Context, tctx tenant.Context, memID string) (*model.Memory, string, error) {
	mem, err := e.getMemoryByID(ctx, tctx, memID)
	if err != nil {
		return nil, "", err
	}
	scope := "private"
	if tctx.HasTeam() && mem.UserID == tenant.TeamUserID(tctx.TeamID) {
		scope = "team"
	}
	e.touch(ctx, mem)
	return mem, scope, nil
}

// touch implements Recall's "touch each hit" step: last_accessed moves to
// now and access_count increments, best-effort (a failed touch doesn't
// fail the recall).
func (e *Engine) touch(ctx context.Context, mem *model.Memory) {
	now := e.now()
	mem.Touch(now)
	err := e.setMemoryFieldsByUser(ctx, mem.UserID, mem.ID, map[string]any{
		"last_accessed": now.UTC().Format(timeLayout),
		"access_count":  int64(mem.AccessCount),
	})
	if err != nil {
		logger.Warnw("touch failed", "error", err.Error(), "memory_id", mem.ID)
	}
}

const timeLayout = "2006-01-02T15:04:05.999999999Z07:00"

func (e *Engine) setMemoryFieldsByUser(ctx context.Context, userID, memID string, partial map[string]any) error {
	filter := store.Filter{Must: []store.Condition{
		store.Eq(store.FieldType, string(store.RecordMemory)),
		store.Eq(store.FieldID, memID),
		store.Eq(store.FieldUserID, userID),
	}}
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	return e.Index.SetPayload(ictx, filter, partial)
}

// renderHit formats one result line: tenant tag (in team mode), gate,
// score or "text", date, person, a snippet, and the id.
func (e *Engine) renderHit(tctx tenant.Context, h RecallHit) string {
	var b strings.Builder
	if tctx.HasTeam() {
		fmt.Fprintf(&b, "[%s] ", h.Scope)
	}
	fmt.Fprintf(&b, "[%s] ", h.Memory.Gate)
	if h.GraphRelation != "" {
		fmt.Fprintf(&b, "[graph: %s] ", h.GraphRelation)
	} else if h.HasScore {
		fmt.Fprintf(&b, "score=%.3f ", h.Score)
	} else {
		b.WriteString("text ")
	}
	fmt.Fprintf(&b, "%s ", h.Memory.Created.UTC().Format("2006-01-02"))
	if h.Memory.Person != "" {
		fmt.Fprintf(&b, "person=%s ", h.Memory.Person)
	}
	b.WriteString(snippet(h.Memory.Content))
	fmt.Fprintf(&b, " (id: %s)", h.Memory.ID)
	return b.String()
}

func snippet(content string) string {
	const max = 160
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}
