package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/store"
	"github.com/kart-io/memoryctl/internal/tenant"
	"github.com/kart-io/memoryctl/pkg/errors"
	"github.com/kart-io/memoryctl/pkg/id"
	tracing "github.com/kart-io/memoryctl/pkg/infra/tracing"
)

const tracerName = "github.com/kart-io/memoryctl/internal/engine"

// RememberInput is Remember's input contract.
type RememberInput struct {
	Content    string
	Gate       string
	Person     string
	Project    string
	Visibility model.Visibility // defaults to private
	TeamID     string
}

// previewLen bounds the content preview Remember echoes back.
const previewLen = 80

// Remember validates input, assigns gate/decay, writes the journal and
// memory records, and fans out the best-effort side effects:
// contradiction check, correction edges, follows chain, PII heuristic,
// sensitivity classification. Side-effect results are folded into the
// returned warning text; side-effect failures are logged, add no warning,
// and never fail the call.
func (e *Engine) Remember(ctx context.Context, tctx tenant.Context, in RememberInput) (string, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Remember")
	defer span.End()

	if in.Visibility == "" {
		in.Visibility = model.VisibilityPrivate
	}

	gate, err := model.ParseGate(in.Gate)
	if err != nil {
		return "", errors.ErrValidation.WithCause(err)
	}
	if len(in.Content) == 0 {
		return "", errors.ErrValidation.WithMessage("content must not be empty")
	}
	if len(in.Content) > model.MaxContentLength {
		return "", errors.ErrValidation.WithMessagef("content exceeds %d characters", model.MaxContentLength)
	}
	if in.Visibility == model.VisibilityTeam && in.TeamID == "" {
		return "", errors.ErrConfig.WithMessage("team visibility requires a team_id")
	}

	now := e.now()
	userID := tctx.UserID
	createdBy := tctx.UserID
	if in.Visibility == model.VisibilityTeam {
		userID = tenant.TeamUserID(in.TeamID)
	}

	memID := id.NewMemoryID(now)
	date := now.UTC().Format("2006-01-02")

	// 1. Journal append.
	journal := &model.JournalEntry{
		ID:        "jrn_" + memID[4:],
		Timestamp: now,
		Gate:      gate,
		Content:   in.Content,
		Person:    in.Person,
		Project:   in.Project,
		Date:      date,
		UserID:    userID,
	}
	if err := e.upsertJournal(ctx, journal); err != nil {
		return "", errors.ErrStorage.WithCause(err)
	}

	// 2. Memory insert.
	mem := &model.Memory{
		ID:           memID,
		Created:      now,
		LastAccessed: now,
		AccessCount:  1,
		Gate:         gate,
		DecayClass:   model.DecayClassFor(gate),
		Confidence:   0.9,
		Content:      in.Content,
		Person:       in.Person,
		Project:      in.Project,
		Visibility:   in.Visibility,
		TeamID:       in.TeamID,
		CreatedBy:    createdBy,
		UserID:       userID,
		Edges:        []model.Edge{},
	}
	if err := e.upsertMemory(ctx, mem); err != nil {
		return "", errors.ErrStorage.WithCause(err)
	}

	var warnings []string

	// 3. Contradiction check (advisory only).
	if w := e.checkSimilarity(ctx, tctx, mem); w != "" {
		warnings = append(warnings, w)
	}

	// 4. Correction handling.
	if gate == model.GateCorrection {
		if w := e.applyCorrection(ctx, tctx, mem); w != "" {
			warnings = append(warnings, w)
		}
	}

	// 5. Follows chain.
	e.linkFollowsChain(ctx, tctx, mem)

	// 6. PII heuristic.
	if w := detectPII(in.Content); w != "" {
		warnings = append(warnings, w)
	}

	// 7. Sensitivity classification.
	if e.Synth != nil {
		if w := e.classifyOne(ctx, tctx, mem); w != "" {
			warnings = append(warnings, w)
		}
	}

	preview := in.Content
	if len(preview) > previewLen {
		preview = preview[:previewLen] + "..."
	}
	msg := fmt.Sprintf("Remembered [%s]: %s (id: %s)", gate, preview, memID)
	if len(warnings) > 0 {
		msg += " (" + strings.Join(warnings, "; ") + ")"
	}
	return msg, nil
}

func (e *Engine) upsertJournal(ctx context.Context, j *model.JournalEntry) error {
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	payload := store.JournalToPayload(j)
	return e.Index.Upsert(ictx, j.ID, nil, nil, payload)
}

func (e *Engine) upsertMemory(ctx context.Context, m *model.Memory) error {
	dense, sparse, err := e.embedContent(ctx, m.Content)
	if err != nil {
		return err
	}
	payload, err := store.MemoryToPayload(m)
	if err != nil {
		return err
	}
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	return e.Index.Upsert(ictx, m.ID, dense, sparse, payload)
}

// embedContent builds the dense+sparse pair Upsert and Query both need.
// Embedder failure here is fatal: the embedding belongs to the canonical
// write, not to a best-effort side effect. A nil Embedder (test
// doubles with no provider configured) degrades to a zero vector so the
// write still lands, but Recall's dense leg won't find it.
func (e *Engine) embedContent(ctx context.Context, content string) ([]float32, map[uint32]float32, error) {
	sparse := SparseVector(content)
	if e.Embedder == nil {
		return nil, sparse, nil
	}
	dense, err := e.Embedder.EmbedDense(ctx, content)
	if err != nil {
		return nil, nil, errors.ErrUpstream.WithCause(err)
	}
	return dense, sparse, nil
}

// checkSimilarity is the advisory-only contradiction check: a hybrid
// search against the same tenant scope, limit 3, flagging the first
// distinct-content hit scoring above 0.85. On the rank-calibrated fused
// scale (see store.FuseRRF) that means a hit ranked first in both
// prefetch legs. No data is mutated here.
func (e *Engine) checkSimilarity(ctx context.Context, tctx tenant.Context, mem *model.Memory) string {
	hits, err := e.hybridSearch(ctx, tctx, mem.Content, 3, tenant.FilterOptions{}, mem.ID)
	if err != nil {
		logger.Warnw("contradiction check failed", "error", err.Error(), "memory_id", mem.ID)
		return ""
	}
	for _, h := range hits {
		if h.Score <= 0.85 {
			continue
		}
		existing, err := store.MemoryFromPayload(h.Payload)
		if err != nil || existing.Content == mem.Content {
			continue
		}
		return "high similarity"
	}
	return ""
}

// applyCorrection handles a correction-gated write: search for its
// target (limit 1, fused score > 0.5, i.e. better than first place in a
// single prefetch leg), add a CONTRADICTS edge, and halve the target's
// confidence.
func (e *Engine) applyCorrection(ctx context.Context, tctx tenant.Context, mem *model.Memory) string {
	hits, err := e.hybridSearch(ctx, tctx, mem.Content, 1, tenant.FilterOptions{}, mem.ID)
	if err != nil {
		logger.Warnw("correction search failed", "error", err.Error(), "memory_id", mem.ID)
		return ""
	}
	for _, h := range hits {
		if h.Score <= 0.5 {
			continue
		}
		if err := e.AddEdge(ctx, tctx, mem.ID, h.PointID, model.RelationContradicts); err != nil {
			logger.Warnw("add contradicts edge failed", "error", err.Error())
			return ""
		}
		target, err := store.MemoryFromPayload(h.Payload)
		if err != nil {
			logger.Warnw("decode correction target failed", "error", err.Error())
			return ""
		}
		newConfidence := target.Confidence * 0.5
		if err := e.setMemoryFields(ctx, tctx, target.ID, map[string]any{"confidence": newConfidence}); err != nil {
			logger.Warnw("halve confidence failed", "error", err.Error())
			return ""
		}
		return "superseded a prior memory"
	}
	return ""
}

// linkFollowsChain chains contextual writes: the most recent memory in
// the same tenant matching the new memory's person/project context —
// every context field that is set must match — within the previous 24h
// (excluding the new id) gets a FOLLOWS edge from the new memory to it.
func (e *Engine) linkFollowsChain(ctx context.Context, tctx tenant.Context, mem *model.Memory) {
	if mem.Person == "" && mem.Project == "" {
		return
	}
	opts := tenant.FilterOptions{Person: mem.Person, Project: mem.Project}
	filter := tenant.MakeFilter(tctx, store.RecordMemory, opts)

	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	records, err := e.Index.Scroll(ictx, filter, 50, "")
	if err != nil {
		logger.Warnw("follows chain scroll failed", "error", err.Error())
		return
	}

	cutoff := mem.Created.Add(-24 * time.Hour)
	var recent *model.Memory
	for _, r := range records {
		cand, err := store.MemoryFromPayload(r.Payload)
		if err != nil || cand.ID == mem.ID {
			continue
		}
		if cand.Created.Before(cutoff) || cand.Created.After(mem.Created) {
			continue
		}
		if recent == nil || cand.Created.After(recent.Created) {
			recent = cand
		}
	}
	if recent == nil {
		return
	}
	if err := e.AddEdge(ctx, tctx, mem.ID, recent.ID, model.RelationFollows); err != nil {
		logger.Warnw("add follows edge failed", "error", err.Error())
	}
}

// classifyOne sends the new content to the Synthesizer; a non-safe,
// non-unknown verdict is stored on the memory and surfaced.
func (e *Engine) classifyOne(ctx context.Context, tctx tenant.Context, mem *model.Memory) string {
	level, reason, err := e.classifyContent(ctx, mem.Content)
	if err != nil {
		logger.Warnw("sensitivity classification failed", "error", err.Error(), "memory_id", mem.ID)
		return ""
	}
	if level == model.SensitivitySafe || level == model.SensitivityUnknown || level == model.SensitivityUnset {
		return ""
	}
	if err := e.setMemoryFields(ctx, tctx, mem.ID, map[string]any{
		store.FieldSensitivity: string(level),
		"sensitivity_reason":   reason,
	}); err != nil {
		logger.Warnw("persist sensitivity failed", "error", err.Error())
		return ""
	}
	return string(level)
}

// setMemoryFields applies a SetPayload merge scoped to one memory id,
// narrowed by the tenant filter so a write can never touch another
// tenant's record even if ids were ever to collide.
func (e *Engine) setMemoryFields(ctx context.Context, tctx tenant.Context, memoryID string, partial map[string]any) error {
	filter := tenant.MakeFilter(tctx, store.RecordMemory, tenant.FilterOptions{})
	filter.Must = append(filter.Must, store.Eq(store.FieldID, memoryID))
	ictx, cancel := e.indexCtx(ctx)
	defer cancel()
	return e.Index.SetPayload(ictx, filter, partial)
}
