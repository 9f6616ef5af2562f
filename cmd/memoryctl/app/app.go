// Package app wires memoryctl's cobra/viper/pflag bootstrap (pkg/app) to
// a concrete Engine built from Milvus, an LLM provider pair, and the
// optional Redis/Mongo infra a given invocation enables.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/memoryctl/cmd/memoryctl/app/options"
	"github.com/kart-io/memoryctl/internal/audit"
	"github.com/kart-io/memoryctl/internal/cache"
	"github.com/kart-io/memoryctl/internal/engine"
	"github.com/kart-io/memoryctl/internal/store"
	"github.com/kart-io/memoryctl/internal/tenant"
	goapp "github.com/kart-io/memoryctl/pkg/app"
	"github.com/kart-io/memoryctl/pkg/checkpoint"
	"github.com/kart-io/memoryctl/pkg/infra/tracing"
	milvuscomp "github.com/kart-io/memoryctl/pkg/component/milvus"
	mongocomp "github.com/kart-io/memoryctl/pkg/component/mongodb"
	rediscomp "github.com/kart-io/memoryctl/pkg/component/redis"
	"github.com/kart-io/memoryctl/pkg/llm"
	"github.com/kart-io/memoryctl/pkg/llm/resilience"

	_ "github.com/kart-io/memoryctl/pkg/llm/ollama"
	_ "github.com/kart-io/memoryctl/pkg/llm/openai"
)

const (
	// Name is the binary/config-file name.
	Name = "memoryctl"

	commandDesc = `memoryctl is a local, single-user command line client for the memory
engine: it embeds and searches your own notes, facts, and decisions
through a Milvus-backed vector index, without a server in front of it.`
)

// Runtime bundles everything a subcommand needs to call into the engine.
type Runtime struct {
	Engine *engine.Engine
	Tenant tenant.Context
	Sealer *checkpoint.Sealer
	Audit  *audit.Log // nil unless --enable-audit

	closers []func(context.Context) error
}

// Close releases every infra connection Runtime opened, in reverse order.
func (r *Runtime) Close(ctx context.Context) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			logger.Warnw("shutdown error", "error", err.Error())
		}
	}
}

// runtimeBuilder lazily constructs the Runtime once options.Complete and
// options.Validate have already run (via pkg/app's PersistentPreRunE), so
// bare --help/--version invocations never dial out to Milvus.
type runtimeBuilder struct {
	opts *options.ServerOptions
	once sync.Once
	rt   *Runtime
	err  error
}

func (b *runtimeBuilder) get(ctx context.Context) (*Runtime, error) {
	b.once.Do(func() {
		b.rt, b.err = buildRuntime(ctx, b.opts)
	})
	return b.rt, b.err
}

// NewApp creates the memoryctl command tree: a pkg/app.App bootstrap with
// no single RunFunc, carrying every memory/rule/identity/checkpoint
// subcommand instead.
func NewApp() *goapp.App {
	opts := options.NewServerOptions()
	rb := &runtimeBuilder{opts: opts}

	application := goapp.NewApp(
		goapp.WithName(Name),
		goapp.WithDescription(commandDesc),
		goapp.WithOptions(opts),
	)

	cmd := application.Command()
	for _, c := range newCommands(rb) {
		cmd.AddCommand(c)
	}

	return application
}

func buildRuntime(ctx context.Context, opts *options.ServerOptions) (*Runtime, error) {
	if err := opts.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	rt := &Runtime{
		Tenant: tenant.Context{UserID: opts.UserID, TeamID: opts.TeamID},
		Sealer: checkpoint.NewSealer(opts.CheckpointKey, Name, opts.CheckpointTTL),
	}

	tp, err := tracing.NewProvider(opts.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	rt.closers = append(rt.closers, tp.Shutdown)

	mv, err := milvuscomp.New(opts.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	rt.closers = append(rt.closers, mv.Close)

	index := store.NewMilvusIndexFromComponent(mv, opts.Collection, opts.VectorDim)
	if err := index.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	var rc *rediscomp.Client
	if opts.EnableDecayCache {
		rc, err = rediscomp.New(opts.RedisOptions)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		rt.closers = append(rt.closers, func(context.Context) error { return rc.Close() })
	}

	embedProvider, err := llm.NewEmbeddingProvider(opts.EmbeddingOptions.Provider, opts.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("build embedding provider: %w", err)
	}
	if rc != nil {
		embedProvider = llm.NewCachedEmbeddingProvider(embedProvider, rc.Client(), nil)
	}
	resilientEmbed := resilience.NewResilientEmbeddingProvider(embedProvider, nil, nil)
	embedder := engine.NewProviderEmbedder(resilientEmbed)

	var synth engine.Synthesizer
	if opts.EnableSynth {
		chatProvider, err := llm.NewChatProvider(opts.ChatOptions.Provider, opts.ChatOptions.ToConfigMap())
		if err != nil {
			return nil, fmt.Errorf("build chat provider: %w", err)
		}
		resilientChat := resilience.NewResilientChatProvider(chatProvider, nil, nil)
		synth = engine.NewProviderSynthesizer(resilientChat)
	}

	eng := engine.New(index, embedder, synth, opts.EngineOptions.Config())

	if rc != nil {
		eng.DecayMemo = cache.New(rc, "")
	}

	if opts.EnableAudit {
		mc, err := mongocomp.New(opts.MongoOptions)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		rt.closers = append(rt.closers, func(context.Context) error { return mc.Close() })
		rt.Audit = audit.New(mc, "")
		eng.Audit = rt.Audit
	}

	rt.Engine = eng
	return rt, nil
}
