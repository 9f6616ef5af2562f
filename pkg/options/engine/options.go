// Package engineopts provides options for the memory engine's own tuning
// knobs, independent of the VectorIndex/Embedder/Synthesizer it wires.
package engineopts

import (
	"fmt"
	"time"

	"github.com/kart-io/memoryctl/internal/engine"
	"github.com/kart-io/memoryctl/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options mirrors engine.Config as CLI/config-file-bindable fields.
type Options struct {
	// SynthesizerTimeout bounds every Synthesizer call.
	SynthesizerTimeout time.Duration `json:"synthesizer-timeout" mapstructure:"synthesizer-timeout"`

	// IndexTimeout bounds every VectorIndex call.
	IndexTimeout time.Duration `json:"index-timeout" mapstructure:"index-timeout"`

	// RecallLimit is the default number of fused hits Recall returns.
	RecallLimit int `json:"recall-limit" mapstructure:"recall-limit"`

	// ConsolidationAge is how old a journal day must be before Reflect
	// folds it into a weekly digest.
	ConsolidationAge time.Duration `json:"consolidation-age" mapstructure:"consolidation-age"`

	// FadingThreshold is the decay score below which a non-pinned,
	// non-never memory is considered fading.
	FadingThreshold float64 `json:"fading-threshold" mapstructure:"fading-threshold"`
}

// NewOptions creates new Options with the engine's documented defaults.
func NewOptions() *Options {
	return &Options{
		SynthesizerTimeout: 60 * time.Second,
		IndexTimeout:       30 * time.Second,
		RecallLimit:        10,
		ConsolidationAge:   14 * 24 * time.Hour,
		FadingThreshold:    0.05,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.SynthesizerTimeout, options.Join(prefixes...)+"engine.synthesizer-timeout", o.SynthesizerTimeout, "Timeout for synthesizer (LLM) calls.")
	fs.DurationVar(&o.IndexTimeout, options.Join(prefixes...)+"engine.index-timeout", o.IndexTimeout, "Timeout for vector index calls.")
	fs.IntVar(&o.RecallLimit, options.Join(prefixes...)+"engine.recall-limit", o.RecallLimit, "Default number of fused hits Recall returns.")
	fs.DurationVar(&o.ConsolidationAge, options.Join(prefixes...)+"engine.consolidation-age", o.ConsolidationAge, "How old a journal day must be before Reflect digests it.")
	fs.Float64Var(&o.FadingThreshold, options.Join(prefixes...)+"engine.fading-threshold", o.FadingThreshold, "Decay score below which a memory is considered fading.")
}

// Config converts Options into the engine.Config it configures.
func (o *Options) Config() engine.Config {
	return engine.Config{
		SynthesizerTimeout: o.SynthesizerTimeout,
		IndexTimeout:       o.IndexTimeout,
		RecallLimit:        o.RecallLimit,
		ConsolidationAge:   o.ConsolidationAge,
		FadingThreshold:    o.FadingThreshold,
	}
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.SynthesizerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("engine synthesizer-timeout must be positive"))
	}
	if o.IndexTimeout <= 0 {
		errs = append(errs, fmt.Errorf("engine index-timeout must be positive"))
	}
	if o.RecallLimit <= 0 {
		errs = append(errs, fmt.Errorf("engine recall-limit must be positive"))
	}
	if o.ConsolidationAge <= 0 {
		errs = append(errs, fmt.Errorf("engine consolidation-age must be positive"))
	}
	if o.FadingThreshold < 0 {
		errs = append(errs, fmt.Errorf("engine fading-threshold must not be negative"))
	}
	return errs
}
