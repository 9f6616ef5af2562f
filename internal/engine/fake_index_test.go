package engine

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/kart-io/memoryctl/internal/store"
)

// fakeIndex is an in-memory VectorIndex double: no Milvus, no network,
// just enough set/filter/rank behavior to exercise the engine's write and
// retrieval contracts end to end. Query ranks each prefetch leg by a
// dense-cosine or sparse-overlap score and then fuses through the same
// store.FuseRRF the production index uses, so engine tests see the real
// rank-calibrated fused score space the 0.85 duplicate and 0.5
// correction-target thresholds are written against.
type fakeIndex struct {
	mu      sync.Mutex
	dense   map[string][]float32
	sparse  map[string]map[uint32]float32
	payload map[string]map[string]any
	order   []string // insertion order, for stable iteration
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		dense:   map[string][]float32{},
		sparse:  map[string]map[uint32]float32{},
		payload: map[string]map[string]any{},
	}
}

func (f *fakeIndex) Upsert(_ context.Context, pointID string, dense []float32, sparse map[uint32]float32, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.payload[pointID]; !exists {
		f.order = append(f.order, pointID)
	}
	f.dense[pointID] = dense
	f.sparse[pointID] = sparse
	cp := make(map[string]any, len(payload))
	for k, v := range payload {
		cp[k] = v
	}
	f.payload[pointID] = cp
	return nil
}

func (f *fakeIndex) SetPayload(_ context.Context, filter store.Filter, partial map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		p, ok := f.payload[id]
		if !ok || !matchFilter(p, filter) {
			continue
		}
		for k, v := range partial {
			p[k] = v
		}
	}
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, filter store.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []string
	for _, id := range f.order {
		if matchFilter(f.payload[id], filter) {
			delete(f.payload, id)
			delete(f.dense, id)
			delete(f.sparse, id)
			continue
		}
		kept = append(kept, id)
	}
	f.order = kept
	return nil
}

func (f *fakeIndex) Scroll(_ context.Context, filter store.Filter, limit int, _ string) ([]store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Record
	for _, id := range f.order {
		p, ok := f.payload[id]
		if !ok || !matchFilter(p, filter) {
			continue
		}
		out = append(out, store.Record{PointID: id, Payload: clonePayload(p)})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeIndex) Count(ctx context.Context, filter store.Filter) (int64, error) {
	recs, err := f.Scroll(ctx, filter, 0, "")
	if err != nil {
		return 0, err
	}
	return int64(len(recs)), nil
}

func (f *fakeIndex) Query(_ context.Context, prefetch []store.VectorQuery, filter store.Filter, limit int) ([]store.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lists := make([][]store.ScoredPoint, 0, len(prefetch))
	for _, leg := range prefetch {
		var list []store.ScoredPoint
		for _, id := range f.order {
			p, ok := f.payload[id]
			if !ok || !matchFilter(p, filter) {
				continue
			}
			var score float64
			switch leg.Using {
			case "sparse":
				score = sparseOverlap(leg.Sparse, f.sparse[id])
			default:
				score = cosine(leg.Dense, f.dense[id])
			}
			// A real ANN leg never surfaces a point with literally zero
			// overlap against the query vector as a top-K neighbour once
			// the collection has more than a couple of points; mirror that
			// so graph-expansion tests can tell a direct hit from a
			// neighbour reached only through an edge.
			if score <= 0 {
				continue
			}
			list = append(list, store.ScoredPoint{PointID: id, Score: score, Payload: clonePayload(p)})
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].Score > list[j].Score })
		if leg.Limit > 0 && len(list) > leg.Limit {
			list = list[:leg.Limit]
		}
		lists = append(lists, list)
	}

	return store.FuseRRF(lists, limit), nil
}

func (f *fakeIndex) TextSearch(_ context.Context, filter store.Filter, tokens []string, limit int) ([]store.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.ScoredPoint
	for _, id := range f.order {
		p, ok := f.payload[id]
		if !ok || !matchFilter(p, filter) {
			continue
		}
		content := strings.ToLower(str(p[store.FieldContent]))
		matches := 0
		for _, t := range tokens {
			if strings.Contains(content, strings.ToLower(t)) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		out = append(out, store.ScoredPoint{PointID: id, Score: float64(matches) / float64(len(tokens)), Payload: clonePayload(p)})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeIndex) Close(context.Context) error { return nil }

var _ store.VectorIndex = (*fakeIndex)(nil)

func clonePayload(p map[string]any) map[string]any {
	cp := make(map[string]any, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func matchFilter(p map[string]any, f store.Filter) bool {
	for _, c := range f.Must {
		if !matchCondition(p, c) {
			return false
		}
	}
	if len(f.Should) > 0 {
		ok := false
		for _, sub := range f.Should {
			if matchFilter(p, sub) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func matchCondition(p map[string]any, c store.Condition) bool {
	v := p[c.Field]
	switch c.Op {
	case store.OpEq:
		return eqAny(v, c.Value)
	case store.OpNeq:
		return !eqAny(v, c.Value)
	case store.OpIn:
		switch values := c.Value.(type) {
		case []string:
			for _, want := range values {
				if eqAny(v, want) {
					return true
				}
			}
		case []any:
			for _, want := range values {
				if eqAny(v, want) {
					return true
				}
			}
		}
		return false
	default:
		return true
	}
}

func eqAny(a, b any) bool {
	return a == b
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sparseOverlap(a, b map[uint32]float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for k, v := range a {
		na += float64(v) * float64(v)
		if w, ok := b[k]; ok {
			dot += float64(v) * float64(w)
		}
	}
	for _, w := range b {
		nb += float64(w) * float64(w)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
