// Package store defines the VectorIndex capability contract the engine
// consumes and one concrete Milvus-backed implementation. The engine never
// talks to Milvus directly; it only ever sees this interface.
package store

import "context"

// RecordType is the payload type discriminator every point in the single
// logical collection (cmk_memories) carries.
type RecordType string

const (
	RecordMemory   RecordType = "memory"
	RecordJournal  RecordType = "journal"
	RecordIdentity RecordType = "identity"
	RecordRule     RecordType = "rule"
)

// Op is a comparison operator usable in a Condition.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpLt  Op = "lt"
	OpGte Op = "gte"
	OpIn  Op = "in"
)

// Condition is a single payload-field predicate.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Filter is a recursive boolean predicate over payload fields: all of Must
// must hold, and at least one nested Filter in Should must hold (when
// Should is non-empty). This mirrors the Must/Should shape MakeFilter
// needs to express "(user_id == me AND visibility == private) OR
// (team_id == team AND visibility == team)".
type Filter struct {
	Must   []Condition
	Should []Filter
}

// Eq is a convenience constructor for an equality Condition.
func Eq(field string, value any) Condition { return Condition{Field: field, Op: OpEq, Value: value} }

// VectorQuery is one prefetch leg of a hybrid Query call: a dense cosine
// search, or a sparse BM25-style search, over the "using" vector field.
type VectorQuery struct {
	Using  string // "dense" or "sparse"
	Dense  []float32
	Sparse map[uint32]float32
	Limit  int
}

// Record is a raw point materialized from Scroll, with no score attached.
type Record struct {
	PointID string
	Payload map[string]any
}

// ScoredPoint is a materialized hit from Query/TextSearch.
type ScoredPoint struct {
	PointID string
	Score   float64
	Payload map[string]any
}

// VectorIndex is the capability contract the engine relies on.
// Point IDs are the caller's domain id (e.g. a Memory.ID); the concrete
// implementation is responsible for deriving the index's internal point
// key from it (see DerivePointID).
type VectorIndex interface {
	// Upsert is idempotent on pointID.
	Upsert(ctx context.Context, pointID string, dense []float32, sparse map[uint32]float32, payload map[string]any) error

	// SetPayload merges partial into the existing payload of every point
	// matching filter.
	SetPayload(ctx context.Context, filter Filter, partial map[string]any) error

	// Delete removes all points matching filter.
	Delete(ctx context.Context, filter Filter) error

	// Scroll is a paginated scan with optional deterministic ordering on a
	// payload field (empty orderBy means implementation-defined order).
	Scroll(ctx context.Context, filter Filter, limit int, orderBy string) ([]Record, error)

	// Count returns the exact number of points matching filter.
	Count(ctx context.Context, filter Filter) (int64, error)

	// Query runs each prefetch leg, fuses the result lists with
	// Reciprocal Rank Fusion, and returns the top limit points.
	Query(ctx context.Context, prefetch []VectorQuery, filter Filter, limit int) ([]ScoredPoint, error)

	// TextSearch runs a word-tokenized full-text query against the
	// content field, for Recall's lexical fallback.
	TextSearch(ctx context.Context, filter Filter, tokens []string, limit int) ([]ScoredPoint, error)

	// Close releases the underlying client connection.
	Close(ctx context.Context) error
}
