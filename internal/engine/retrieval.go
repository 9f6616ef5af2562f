package engine

import (
	"context"

	"github.com/kart-io/memoryctl/internal/store"
	"github.com/kart-io/memoryctl/internal/tenant"
)

// hybridSearch runs the dense+sparse prefetch/fusion stage, scoped to one
// tenant and an optional narrowing filter. It is shared by Remember's
// contradiction/correction checks and Recall's first stage. excludeID, when
// non-empty, is dropped from the result set before scoring is even
// considered — callers searching with a query drawn from a memory's own
// just-upserted content (checkSimilarity, applyCorrection) must exclude
// that memory's id, since its vector is a perfect self-match and would
// otherwise always rank first and crowd out any real candidate.
func (e *Engine) hybridSearch(ctx context.Context, tctx tenant.Context, query string, limit int, opts tenant.FilterOptions, excludeID string) ([]store.ScoredPoint, error) {
	dense, sparse, err := e.embedContent(ctx, query)
	if err != nil {
		return nil, err
	}

	prefetchLimit := limit * 4
	if prefetchLimit < 20 {
		prefetchLimit = 20
	}

	filter := tenant.MakeFilter(tctx, store.RecordMemory, opts)
	if excludeID != "" {
		filter.Must = append(filter.Must, store.Condition{Field: store.FieldID, Op: store.OpNeq, Value: excludeID})
	}
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()

	prefetch := []store.VectorQuery{
		{Using: "dense", Dense: dense, Limit: prefetchLimit},
		{Using: "sparse", Sparse: sparse, Limit: prefetchLimit},
	}
	return e.Index.Query(ictx, prefetch, filter, limit)
}
