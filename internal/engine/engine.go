package engine

import (
	"context"
	"time"

	"github.com/kart-io/memoryctl/internal/store"
)

// Embedder is the narrow capability the engine consumes for turning text
// into the dense vector Remember and Recall both need. The engine never
// talks to an embedding HTTP endpoint directly.
type Embedder interface {
	// EmbedDense returns the semantic embedding used for cosine ANN search.
	EmbedDense(ctx context.Context, text string) ([]float32, error)
}

// Synthesizer is the narrow capability the engine consumes for the three
// LLM-backed operations: contradiction-free sensitivity classification,
// Reflect's weekly digests, and identity regeneration.
type Synthesizer interface {
	// Synthesize asks the configured model to answer prompt under system,
	// truncating its own output to maxTokens if it honors that hint. model
	// selects a specific backing model when the provider supports more than
	// one; empty uses the provider's default.
	Synthesize(ctx context.Context, system, prompt string, maxTokens int, model string) (string, error)
}

// Config holds the engine's own tuning knobs, independent of the
// VectorIndex/Synthesizer/Embedder it wires.
type Config struct {
	// SynthesizerTimeout bounds every Synthesizer call. Default 60s.
	SynthesizerTimeout time.Duration
	// IndexTimeout bounds every VectorIndex call. Default 30s.
	IndexTimeout time.Duration
	// RecallLimit is the default number of fused hits Recall returns.
	RecallLimit int
	// ConsolidationAge is how old a journal day must be before Reflect
	// folds it into a weekly digest. Default 14 days.
	ConsolidationAge time.Duration
	// FadingThreshold is the decay score below which a non-pinned,
	// non-never memory is considered fading. Default 0.05.
	FadingThreshold float64
}

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		SynthesizerTimeout: 60 * time.Second,
		IndexTimeout:       30 * time.Second,
		RecallLimit:        10,
		ConsolidationAge:   14 * 24 * time.Hour,
		FadingThreshold:    0.05,
	}
}

// Clock abstracts time.Now so tests can pin "now" without sleeping.
type Clock func() time.Time

// Engine is the one value a process holds behind the VectorIndex,
// Embedder, and Synthesizer interfaces: every dependency is an explicit
// constructor parameter instead of a package-level global.
type Engine struct {
	Index     store.VectorIndex
	Embedder  Embedder
	Synth     Synthesizer // may be nil: synthesis-backed steps degrade to no-ops
	Audit     AuditLog    // may be nil
	DecayMemo DecayCache  // may be nil
	Cfg       Config
	Now       Clock
}

// AuditLog is the append-only durability layer Reflect and Migrate write
// to, independent of the single Milvus collection.
type AuditLog interface {
	Record(ctx context.Context, userID, action, detail string) error
}

// DecayCache memoizes a memory's last-computed decay score so Reflect's
// fading scan doesn't recompute log2/pow for memories it has already
// swept this cycle.
type DecayCache interface {
	Get(ctx context.Context, memoryID string) (score float64, ok bool)
	Set(ctx context.Context, memoryID string, score float64, ttl time.Duration)
}

// New builds an Engine. embedder and synth may be nil only in tests that
// never exercise the steps requiring them; production callers always
// supply both.
func New(index store.VectorIndex, embedder Embedder, synth Synthesizer, cfg Config) *Engine {
	if cfg.RecallLimit <= 0 {
		cfg.RecallLimit = DefaultConfig().RecallLimit
	}
	if cfg.SynthesizerTimeout <= 0 {
		cfg.SynthesizerTimeout = DefaultConfig().SynthesizerTimeout
	}
	if cfg.IndexTimeout <= 0 {
		cfg.IndexTimeout = DefaultConfig().IndexTimeout
	}
	if cfg.ConsolidationAge <= 0 {
		cfg.ConsolidationAge = DefaultConfig().ConsolidationAge
	}
	if cfg.FadingThreshold <= 0 {
		cfg.FadingThreshold = DefaultConfig().FadingThreshold
	}
	return &Engine{
		Index:    index,
		Embedder: embedder,
		Synth:    synth,
		Cfg:      cfg,
		Now:      time.Now,
	}
}

// now returns e.Now() if set, else time.Now(); kept so a zero-value
// Engine{} built directly in a test still works.
func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) indexCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.Cfg.IndexTimeout)
}

func (e *Engine) synthCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.Cfg.SynthesizerTimeout)
}
