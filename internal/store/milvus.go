package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// DefaultCollection is the single logical collection every record type
// (memory, journal, identity, rule) is stored in, discriminated by the
// "type" scalar field.
const DefaultCollection = "cmk_memories"

const (
	fieldID      = "id"
	fieldDense   = "dense"
	fieldSparse  = "sparse"
	fieldPayload = "payload"
)

// filterableFields are the payload keys promoted to real Milvus scalar
// columns, so Filter predicates on them compile to a boolean expression
// instead of requiring a full-payload scan. Every other payload key only
// ever lives inside the JSON payload column.
var filterableFields = []string{
	FieldType, FieldID, FieldUserID, FieldTeamID, FieldVisibility,
	FieldGate, FieldSensitivity, FieldPerson, FieldProject, FieldDate,
	FieldRuleID,
}

// MilvusIndex is the concrete VectorIndex backed by Milvus.
type MilvusIndex struct {
	client     *milvusclient.Client
	collection string
	dim        int
}

// NewMilvusIndex wraps an already-connected Milvus client. Call
// EnsureCollection once before using the index.
func NewMilvusIndex(client *milvusclient.Client, collection string, dim int) *MilvusIndex {
	if collection == "" {
		collection = DefaultCollection
	}
	return &MilvusIndex{client: client, collection: collection, dim: dim}
}

// EnsureCollection creates the collection and its indexes if they do not
// already exist, then loads it into memory.
func (m *MilvusIndex) EnsureCollection(ctx context.Context) error {
	exists, err := m.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(m.collection))
	if err != nil {
		return fmt.Errorf("check collection existence: %w", err)
	}
	if !exists {
		schema := entity.NewSchema().
			WithName(m.collection).
			WithDescription("memory engine records: memories, journal entries, identity cards, rules").
			WithAutoID(false)

		schema.WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true))
		schema.WithField(entity.NewField().WithName(fieldDense).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(m.dim)))
		schema.WithField(entity.NewField().WithName(fieldSparse).WithDataType(entity.FieldTypeSparseVector))
		schema.WithField(entity.NewField().WithName(fieldPayload).WithDataType(entity.FieldTypeJSON))

		for _, f := range filterableFields {
			schema.WithField(entity.NewField().WithName(f).WithDataType(entity.FieldTypeVarChar).WithMaxLength(512))
		}

		if err := m.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(m.collection, schema)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}

		denseIdx := index.NewIvfFlatIndex(entity.COSINE, 128)
		denseTask, err := m.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(m.collection, fieldDense, denseIdx))
		if err != nil {
			return fmt.Errorf("create dense index: %w", err)
		}
		if err := denseTask.Await(ctx); err != nil {
			return fmt.Errorf("await dense index: %w", err)
		}

		sparseIdx := index.NewSparseInvertedIndex(entity.IP, 0.2)
		sparseTask, err := m.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(m.collection, fieldSparse, sparseIdx))
		if err != nil {
			return fmt.Errorf("create sparse index: %w", err)
		}
		if err := sparseTask.Await(ctx); err != nil {
			return fmt.Errorf("await sparse index: %w", err)
		}

		// Keyword indexes on every promoted scalar column, so tenant and
		// narrowing predicates never degrade to a payload scan.
		for _, f := range filterableFields {
			task, err := m.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(m.collection, f, index.NewInvertedIndex()))
			if err != nil {
				return fmt.Errorf("create %s index: %w", f, err)
			}
			if err := task.Await(ctx); err != nil {
				return fmt.Errorf("await %s index: %w", f, err)
			}
		}
	}

	loadTask, err := m.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(m.collection))
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return loadTask.Await(ctx)
}

func pointIDInt64(domainID string) int64 {
	return int64(DerivePointID(domainID))
}

func buildExpr(f Filter) string {
	var parts []string
	for _, c := range f.Must {
		if e := conditionExpr(c); e != "" {
			parts = append(parts, e)
		}
	}
	if len(f.Should) > 0 {
		var orParts []string
		for _, sub := range f.Should {
			if e := buildExpr(sub); e != "" {
				orParts = append(orParts, "("+e+")")
			}
		}
		if len(orParts) > 0 {
			parts = append(parts, "("+strings.Join(orParts, " or ")+")")
		}
	}
	return strings.Join(parts, " and ")
}

func conditionExpr(c Condition) string {
	switch c.Op {
	case OpEq:
		return fmt.Sprintf("%s == %s", c.Field, quoteValue(c.Value))
	case OpNeq:
		return fmt.Sprintf("%s != %s", c.Field, quoteValue(c.Value))
	case OpLt:
		return fmt.Sprintf("%s < %s", c.Field, quoteValue(c.Value))
	case OpGte:
		return fmt.Sprintf("%s >= %s", c.Field, quoteValue(c.Value))
	case OpIn:
		var values []any
		switch vs := c.Value.(type) {
		case []string:
			for _, v := range vs {
				values = append(values, v)
			}
		case []any:
			values = vs
		}
		if len(values) == 0 {
			return ""
		}
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = quoteValue(v)
		}
		return fmt.Sprintf("%s in [%s]", c.Field, strings.Join(quoted, ", "))
	default:
		return ""
	}
}

func quoteValue(v any) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// sparseEmbeddings builds the Milvus sparse-vector wire type from the
// map[uint32]float32 representation VectorIndex callers use.
func sparseEmbeddings(sparse []map[uint32]float32) ([]entity.SparseEmbedding, error) {
	out := make([]entity.SparseEmbedding, len(sparse))
	for i, sv := range sparse {
		idx := make([]uint32, 0, len(sv))
		vals := make([]float32, 0, len(sv))
		for k, v := range sv {
			idx = append(idx, k)
			vals = append(vals, v)
		}
		emb, err := entity.NewSliceSparseEmbedding(idx, vals)
		if err != nil {
			return nil, fmt.Errorf("build sparse embedding: %w", err)
		}
		out[i] = emb
	}
	return out, nil
}

// payloadColumns builds the full column set for one row, splitting the
// filterable fields out of payload into their own VarChar columns and
// JSON-encoding the rest. sparse is already in Milvus's own wire type so
// rows read back from the index (see SetPayload) can be re-inserted
// without a lossy round trip through map[uint32]float32.
func payloadColumns(ids []int64, dense [][]float32, sparse []entity.SparseEmbedding, payloads []map[string]any) ([]column.Column, error) {
	cols := []column.Column{
		column.NewColumnInt64(fieldID, ids),
		column.NewColumnFloatVector(fieldDense, len(dense[0]), dense),
		column.NewColumnSparseVectors(fieldSparse, sparse),
	}

	jsonBytes := make([][]byte, len(payloads))
	for i, p := range payloads {
		b, err := sonic.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		jsonBytes[i] = b
	}
	cols = append(cols, column.NewColumnJSONBytes(fieldPayload, jsonBytes))

	for _, f := range filterableFields {
		values := make([]string, len(payloads))
		for i, p := range payloads {
			values[i] = str(p[f])
		}
		cols = append(cols, column.NewColumnVarChar(f, values))
	}

	return cols, nil
}

// Upsert implements VectorIndex. Journal/identity/rule records carry no
// embedding; the collection schema still requires a vector per row, so a
// nil dense vector becomes the zero vector and a nil sparse vector a
// single near-zero term. Neither placeholder can win an ANN leg.
func (m *MilvusIndex) Upsert(ctx context.Context, pointID string, dense []float32, sparse map[uint32]float32, payload map[string]any) error {
	if dense == nil {
		dense = make([]float32, m.dim)
	}
	if len(sparse) == 0 {
		sparse = map[uint32]float32{0: 1e-9}
	}
	sparseVecs, err := sparseEmbeddings([]map[uint32]float32{sparse})
	if err != nil {
		return err
	}
	cols, err := payloadColumns(
		[]int64{pointIDInt64(pointID)},
		[][]float32{dense},
		sparseVecs,
		[]map[string]any{payload},
	)
	if err != nil {
		return err
	}
	_, err = m.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(m.collection, cols...))
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// SetPayload implements VectorIndex. Milvus has no in-place partial
// column update, so matching rows — vectors included, so none are lost —
// are read back, merged in memory, and upserted whole.
func (m *MilvusIndex) SetPayload(ctx context.Context, filter Filter, partial map[string]any) error {
	expr := buildExpr(filter)
	fields := append(m.outputFields(), fieldDense, fieldSparse)
	result, err := m.client.Query(ctx, milvusclient.NewQueryOption(m.collection).WithFilter(expr).WithOutputFields(fields...))
	if err != nil {
		return fmt.Errorf("query for set_payload: %w", err)
	}

	var denseCol *column.ColumnFloatVector
	var sparseCol *column.ColumnSparseFloatVector
	for _, field := range result.Fields {
		switch col := field.(type) {
		case *column.ColumnFloatVector:
			denseCol = col
		case *column.ColumnSparseFloatVector:
			sparseCol = col
		}
	}
	if denseCol == nil || sparseCol == nil {
		return fmt.Errorf("set_payload: vector columns missing from query result")
	}

	rows, err := resultToRows(result)
	if err != nil {
		return err
	}

	for i, row := range rows {
		rec := rowToRecord(row)
		// The stored int64 primary key comes off the row directly; it must
		// not be re-derived with DerivePointID from the domain id, since a
		// record type without one (identity) would hash to a different key.
		id, ok := row[fieldID].(int64)
		if !ok {
			return fmt.Errorf("set_payload: row missing int64 primary key")
		}

		merged := make(map[string]any, len(rec.Payload)+len(partial))
		for k, v := range rec.Payload {
			merged[k] = v
		}
		for k, v := range partial {
			merged[k] = v
		}

		cols, err := payloadColumns(
			[]int64{id},
			[][]float32{denseCol.Data()[i]},
			[]entity.SparseEmbedding{sparseCol.Data()[i]},
			[]map[string]any{merged},
		)
		if err != nil {
			return fmt.Errorf("rebuild columns for point %s: %w", rec.PointID, err)
		}
		if _, err := m.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(m.collection, cols...)); err != nil {
			return fmt.Errorf("reupsert point %s: %w", rec.PointID, err)
		}
	}
	return nil
}

// Delete implements VectorIndex.
func (m *MilvusIndex) Delete(ctx context.Context, filter Filter) error {
	expr := buildExpr(filter)
	if expr == "" {
		return fmt.Errorf("delete requires a non-empty filter")
	}
	if _, err := m.client.Delete(ctx, milvusclient.NewDeleteOption(m.collection).WithExpr(expr)); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (m *MilvusIndex) outputFields() []string {
	fields := []string{fieldID, fieldPayload}
	return append(fields, filterableFields...)
}

// rowToRecord folds the promoted scalar columns back into the payload map
// and surfaces the record's domain id as the PointID callers see — the
// engine addresses memories by their "mem_..." ids, never by the hashed
// int64 primary key. Records without a domain id field (identity cards)
// fall back to the primary key rendered as a string.
func rowToRecord(row map[string]any) Record {
	payload, _ := row[fieldPayload].(map[string]any)
	if payload == nil {
		payload = map[string]any{}
	}
	for _, f := range filterableFields {
		if v, ok := row[f]; ok {
			if s, ok := v.(string); ok && s != "" {
				payload[f] = s
			}
		}
	}
	id := str(payload[FieldID])
	if id == "" {
		id = fmt.Sprintf("%v", row[fieldID])
	}
	return Record{PointID: id, Payload: payload}
}

// Scroll implements VectorIndex. orderBy is accepted for interface
// symmetry with the original Qdrant-backed design but not applied here:
// Milvus's scalar query has no server-side sort, so callers that need a
// specific order sort the returned records themselves.
func (m *MilvusIndex) Scroll(ctx context.Context, filter Filter, limit int, orderBy string) ([]Record, error) {
	_ = orderBy
	expr := buildExpr(filter)
	opt := milvusclient.NewQueryOption(m.collection).WithFilter(expr).WithOutputFields(m.outputFields()...)
	if limit > 0 {
		opt = opt.WithLimit(limit)
	}
	result, err := m.client.Query(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("scroll query: %w", err)
	}

	rows, err := resultToRows(result)
	if err != nil {
		return nil, err
	}
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = rowToRecord(row)
	}
	return records, nil
}

// Count implements VectorIndex.
func (m *MilvusIndex) Count(ctx context.Context, filter Filter) (int64, error) {
	expr := buildExpr(filter)
	opt := milvusclient.NewQueryOption(m.collection).WithFilter(expr).WithOutputFields(fieldID)
	result, err := m.client.Query(ctx, opt)
	if err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	rows, err := resultToRows(result)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// Query implements VectorIndex: every prefetch leg runs as an independent
// ANN search against its own vector field, then the ranked lists are
// fused client-side with Reciprocal Rank Fusion.
func (m *MilvusIndex) Query(ctx context.Context, prefetch []VectorQuery, filter Filter, limit int) ([]ScoredPoint, error) {
	expr := buildExpr(filter)
	lists := make([][]ScoredPoint, 0, len(prefetch))

	for _, leg := range prefetch {
		var vectors []entity.Vector
		var annsField string
		switch leg.Using {
		case fieldSparse:
			idx := make([]uint32, 0, len(leg.Sparse))
			vals := make([]float32, 0, len(leg.Sparse))
			for k, v := range leg.Sparse {
				idx = append(idx, k)
				vals = append(vals, v)
			}
			emb, err := entity.NewSliceSparseEmbedding(idx, vals)
			if err != nil {
				return nil, fmt.Errorf("build sparse query embedding: %w", err)
			}
			vectors = []entity.Vector{emb}
			annsField = fieldSparse
		default:
			vectors = []entity.Vector{entity.FloatVector(leg.Dense)}
			annsField = fieldDense
		}

		legLimit := leg.Limit
		if legLimit <= 0 {
			legLimit = limit
		}

		results, err := m.client.Search(ctx, milvusclient.NewSearchOption(m.collection, legLimit, vectors).
			WithANNSField(annsField).
			WithFilter(expr).
			WithOutputFields(m.outputFields()...))
		if err != nil {
			return nil, fmt.Errorf("search leg %s: %w", leg.Using, err)
		}
		lists = append(lists, resultToScoredPoints(results))
	}

	return FuseRRF(lists, limit), nil
}

// TextSearch implements VectorIndex's lexical fallback: each token
// becomes a LIKE clause over the content field, OR'd together, scored by
// how many of the query tokens a row actually contains.
func (m *MilvusIndex) TextSearch(ctx context.Context, filter Filter, tokens []string, limit int) ([]ScoredPoint, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	// content lives inside the JSON payload column, not a promoted scalar
	// column, so the match goes through Milvus's JSON path syntax.
	likeParts := make([]string, len(tokens))
	for i, t := range tokens {
		likeParts[i] = fmt.Sprintf(`%s["%s"] like %s`, fieldPayload, FieldContent, strconv.Quote("%"+t+"%"))
	}
	textExpr := "(" + strings.Join(likeParts, " or ") + ")"

	baseExpr := buildExpr(filter)
	expr := textExpr
	if baseExpr != "" {
		expr = baseExpr + " and " + textExpr
	}

	opt := milvusclient.NewQueryOption(m.collection).WithFilter(expr).WithOutputFields(m.outputFields()...)
	if limit > 0 {
		opt = opt.WithLimit(limit)
	}
	result, err := m.client.Query(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("text search query: %w", err)
	}
	rows, err := resultToRows(result)
	if err != nil {
		return nil, err
	}

	points := make([]ScoredPoint, len(rows))
	for i, row := range rows {
		rec := rowToRecord(row)
		content := strings.ToLower(str(rec.Payload[FieldContent]))
		matches := 0
		for _, t := range tokens {
			if strings.Contains(content, strings.ToLower(t)) {
				matches++
			}
		}
		points[i] = ScoredPoint{
			PointID: rec.PointID,
			Score:   float64(matches) / float64(len(tokens)),
			Payload: rec.Payload,
		}
	}
	return points, nil
}

// Close implements VectorIndex.
func (m *MilvusIndex) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}

// resultToRows turns one column-based result set into row-oriented maps
// keyed by field name, decoding the JSON payload column along the way.
func resultToRows(result milvusclient.ResultSet) ([]map[string]any, error) {
	rows := make([]map[string]any, result.ResultCount)
	for i := range rows {
		rows[i] = map[string]any{}
	}
	for _, field := range result.Fields {
		switch col := field.(type) {
		case *column.ColumnVarChar:
			data := col.Data()
			for i := 0; i < result.ResultCount && i < len(data); i++ {
				rows[i][col.Name()] = data[i]
			}
		case *column.ColumnInt64:
			data := col.Data()
			for i := 0; i < result.ResultCount && i < len(data); i++ {
				rows[i][col.Name()] = data[i]
			}
		case *column.ColumnJSONBytes:
			data := col.Data()
			for i := 0; i < result.ResultCount && i < len(data); i++ {
				var decoded map[string]any
				if err := sonic.Unmarshal(data[i], &decoded); err != nil {
					return nil, fmt.Errorf("decode json payload: %w", err)
				}
				rows[i][col.Name()] = decoded
			}
		}
	}
	return rows, nil
}

// resultToScoredPoints converts the first query-vector's result set from a
// Search call into ScoredPoints, preserving Milvus's own ranking so it can
// be fed straight into FuseRRF.
func resultToScoredPoints(results []milvusclient.ResultSet) []ScoredPoint {
	if len(results) == 0 {
		return nil
	}
	r := results[0]
	rows, err := resultToRows(r)
	if err != nil {
		return nil
	}
	points := make([]ScoredPoint, len(rows))
	for i, row := range rows {
		rec := rowToRecord(row)
		var score float64
		if i < len(r.Scores) {
			score = float64(r.Scores[i])
		}
		points[i] = ScoredPoint{PointID: rec.PointID, Score: score, Payload: rec.Payload}
	}
	return points
}

var _ VectorIndex = (*MilvusIndex)(nil)
