// Package options aggregates every sub-component's configuration into the
// one ServerOptions memoryctl's root command binds flags, config file, and
// environment variables to.
package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/memoryctl/pkg/infra/tracing"
	engineopts "github.com/kart-io/memoryctl/pkg/options/engine"
	llmopts "github.com/kart-io/memoryctl/pkg/options/llm"
	logopts "github.com/kart-io/memoryctl/pkg/options/logger"
	milvusopts "github.com/kart-io/memoryctl/pkg/options/milvus"
	mongoopts "github.com/kart-io/memoryctl/pkg/options/mongodb"
	redisopts "github.com/kart-io/memoryctl/pkg/options/redis"
)

// ServerOptions is memoryctl's top-level configuration: the ambient pieces
// (logging, the vector index, the LLM providers, engine tuning) every
// subcommand shares, plus the CLI-only fields that select which optional
// infra a given invocation wires up.
type ServerOptions struct {
	LogOptions       *logopts.Options         `json:"log" mapstructure:"log"`
	MilvusOptions    *milvusopts.Options      `json:"milvus" mapstructure:"milvus"`
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	ChatOptions      *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`
	EngineOptions    *engineopts.Options      `json:"engine" mapstructure:"engine"`
	RedisOptions     *redisopts.Options       `json:"redis" mapstructure:"redis"`
	MongoOptions     *mongoopts.Options       `json:"mongodb" mapstructure:"mongodb"`
	TracingOptions   *tracing.Options         `json:"tracing" mapstructure:"tracing"`

	// Collection is the single Milvus collection every record type shares.
	Collection string `json:"collection" mapstructure:"collection"`
	// VectorDim is the dense embedding dimension the collection is created with.
	VectorDim int `json:"vector-dim" mapstructure:"vector-dim"`

	// UserID/TeamID resolve the tenant.Context this invocation acts under.
	UserID string `json:"user-id" mapstructure:"user-id"`
	TeamID string `json:"team-id" mapstructure:"team-id"`

	// EnableSynth wires a chat provider in as the engine's Synthesizer;
	// without it, Remember skips sensitivity classification, Reflect skips
	// journal consolidation and identity regeneration, and batch Classify
	// returns a configuration error.
	EnableSynth bool `json:"enable-synth" mapstructure:"enable-synth"`
	// EnableDecayCache wires a Redis-backed DecayCache into Reflect.
	EnableDecayCache bool `json:"enable-decay-cache" mapstructure:"enable-decay-cache"`
	// EnableAudit wires a Mongo-backed AuditLog into Migrate/Reflect.
	EnableAudit bool `json:"enable-audit" mapstructure:"enable-audit"`

	// CheckpointKey signs sealed checkpoint hand-off tokens.
	CheckpointKey string `json:"checkpoint-key" mapstructure:"checkpoint-key"`
	// CheckpointTTL is how long a sealed checkpoint token stays valid; <=0 never expires.
	CheckpointTTL time.Duration `json:"checkpoint-ttl" mapstructure:"checkpoint-ttl"`
}

// NewServerOptions builds a ServerOptions with every sub-component's
// documented defaults.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		LogOptions:       logopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		EngineOptions:    engineopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
		MongoOptions:     mongoopts.NewOptions(),
		TracingOptions:   tracing.NewOptions(),
		Collection:       "cmk_memories",
		VectorDim:        768,
		CheckpointKey:    "memoryctl-dev-checkpoint-key",
		CheckpointTTL:    0,
	}
}

// AddFlags implements pkg/app.CliOptions, wiring every sub-component's
// flags under its own name prefix (the embedding/chat split needs
// distinct prefixes since both bind the same llm.* flag names).
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.LogOptions.AddFlags(fs)
	o.MilvusOptions.AddFlags(fs)
	o.EmbeddingOptions.AddFlags(fs, "embedding")
	o.ChatOptions.AddFlags(fs, "chat")
	o.EngineOptions.AddFlags(fs)
	o.RedisOptions.AddFlags(fs)
	o.MongoOptions.AddFlags(fs)
	o.TracingOptions.AddFlags(fs)

	fs.StringVar(&o.Collection, "collection", o.Collection, "Milvus collection every memory/journal/identity/rule record shares.")
	fs.IntVar(&o.VectorDim, "vector-dim", o.VectorDim, "Dense embedding dimension the collection is created with.")
	fs.StringVar(&o.UserID, "user-id", o.UserID, "Tenant user id this invocation acts under.")
	fs.StringVar(&o.TeamID, "team-id", o.TeamID, "Tenant team id this invocation acts under (optional).")
	fs.BoolVar(&o.EnableSynth, "enable-synth", o.EnableSynth, "Wire the chat provider in as the engine's Synthesizer.")
	fs.BoolVar(&o.EnableDecayCache, "enable-decay-cache", o.EnableDecayCache, "Wire a Redis-backed decay score cache into Reflect.")
	fs.BoolVar(&o.EnableAudit, "enable-audit", o.EnableAudit, "Wire a Mongo-backed audit log into Migrate and Reflect.")
	fs.StringVar(&o.CheckpointKey, "checkpoint-key", o.CheckpointKey, "HMAC key sealed checkpoint tokens are signed with.")
	fs.DurationVar(&o.CheckpointTTL, "checkpoint-ttl", o.CheckpointTTL, "How long a sealed checkpoint token stays valid; <=0 never expires.")
}

// Validate aggregates every sub-component's validation errors, skipping
// the optional infra this invocation didn't ask to enable.
func (o *ServerOptions) Validate() error {
	var errs []error
	for _, e := range o.LogOptions.Validate() {
		errs = append(errs, e)
	}
	for _, e := range o.MilvusOptions.Validate() {
		errs = append(errs, e)
	}
	for _, e := range o.EmbeddingOptions.Validate() {
		errs = append(errs, fmt.Errorf("embedding: %w", e))
	}
	for _, e := range o.EngineOptions.Validate() {
		errs = append(errs, e)
	}
	if err := o.TracingOptions.Validate(); err != nil {
		errs = append(errs, err)
	}

	if o.EnableSynth {
		for _, e := range o.ChatOptions.Validate() {
			errs = append(errs, fmt.Errorf("chat: %w", e))
		}
	}
	if o.EnableDecayCache {
		for _, e := range o.RedisOptions.Validate() {
			errs = append(errs, e)
		}
	}
	if o.EnableAudit {
		for _, e := range o.MongoOptions.Validate() {
			errs = append(errs, e)
		}
	}

	if o.UserID == "" {
		errs = append(errs, fmt.Errorf("user-id is required"))
	}
	if o.VectorDim <= 0 {
		errs = append(errs, fmt.Errorf("vector-dim must be positive"))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("collection must not be empty"))
	}

	return errors.Join(errs...)
}

// Complete fills in defaults the flag/config layer left unset.
func (o *ServerOptions) Complete() error {
	if err := o.LogOptions.Complete(); err != nil {
		return err
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}
