package store

import "sort"

// rrfK is the Reciprocal Rank Fusion smoothing constant. The small value
// calibrates the fused score space: with the usual two prefetch legs, a
// point ranked first in both scores 1.0 and a point ranked first in only
// one scores 0.5. The 0.85 duplicate and 0.5 correction-target thresholds
// upstream are written against this scale; a large academic k (60) would
// cap fused scores near 0.03 and make them unreachable.
const rrfK = 2

// FuseRRF combines ranked result lists into one fused ranking: each
// point's score is the sum of 1/(rrfK + rank) across every list it
// appears in, rank starting at 0. Ties are broken by the raw score from
// lists[0], the dense ANN prefetch.
func FuseRRF(lists [][]ScoredPoint, limit int) []ScoredPoint {
	type agg struct {
		id      string
		rrf     float64
		primary float64
		payload map[string]any
	}

	byID := make(map[string]*agg)
	order := make([]string, 0)

	for listIdx, list := range lists {
		for rank, pt := range list {
			a, ok := byID[pt.PointID]
			if !ok {
				a = &agg{id: pt.PointID, payload: pt.Payload}
				byID[pt.PointID] = a
				order = append(order, pt.PointID)
			}
			a.rrf += 1.0 / float64(rrfK+rank)
			if listIdx == 0 {
				a.primary = pt.Score
			}
			if a.payload == nil {
				a.payload = pt.Payload
			}
		}
	}

	fused := make([]*agg, 0, len(order))
	for _, id := range order {
		fused = append(fused, byID[id])
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].rrf != fused[j].rrf {
			return fused[i].rrf > fused[j].rrf
		}
		return fused[i].primary > fused[j].primary
	})

	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}

	out := make([]ScoredPoint, len(fused))
	for i, a := range fused {
		out[i] = ScoredPoint{PointID: a.id, Score: a.rrf, Payload: a.payload}
	}
	return out
}
