package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRRF(t *testing.T) {
	dense := []ScoredPoint{
		{PointID: "a", Score: 0.9},
		{PointID: "b", Score: 0.8},
		{PointID: "c", Score: 0.7},
	}
	sparse := []ScoredPoint{
		{PointID: "b", Score: 3.1},
		{PointID: "d", Score: 2.5},
		{PointID: "a", Score: 2.0},
	}

	fused := FuseRRF([][]ScoredPoint{dense, sparse}, 10)
	require.Len(t, fused, 4, "expected 4 distinct points")

	// "b" appears at rank 1 (dense) and rank 0 (sparse): highest combined
	// reciprocal rank, so it should come first.
	assert.Equal(t, "b", fused[0].PointID)
}

// The fused score scale is rank-calibrated: a point ranked first in both
// legs scores exactly 1.0, first in only one leg exactly 0.5. The
// duplicate (0.85) and correction-target (0.5) thresholds depend on this.
func TestFuseRRF_ScoreCalibration(t *testing.T) {
	dense := []ScoredPoint{{PointID: "a", Score: 0.9}}
	sparse := []ScoredPoint{{PointID: "a", Score: 2.0}}

	both := FuseRRF([][]ScoredPoint{dense, sparse}, 10)
	require.Len(t, both, 1)
	assert.InDelta(t, 1.0, both[0].Score, 1e-9)

	one := FuseRRF([][]ScoredPoint{dense, nil}, 10)
	require.Len(t, one, 1)
	assert.InDelta(t, 0.5, one[0].Score, 1e-9)
}

func TestFuseRRF_Limit(t *testing.T) {
	dense := []ScoredPoint{{PointID: "a", Score: 1}, {PointID: "b", Score: 0.5}}
	fused := FuseRRF([][]ScoredPoint{dense}, 1)
	assert.Len(t, fused, 1)
	assert.Equal(t, "a", fused[0].PointID)
}

func TestFuseRRF_PointInBothListsOutranksSingleList(t *testing.T) {
	dense := []ScoredPoint{{PointID: "x", Score: 0.99}, {PointID: "y", Score: 0.1}}
	sparseX := []ScoredPoint{{PointID: "y", Score: 5}}
	fused := FuseRRF([][]ScoredPoint{dense, sparseX}, 10)
	assert.Equal(t, "y", fused[0].PointID, "y appears in both lists and should outrank x")
}
