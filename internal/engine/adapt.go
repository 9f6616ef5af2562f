package engine

import (
	"context"
	"fmt"

	"github.com/kart-io/memoryctl/pkg/errors"
	"github.com/kart-io/memoryctl/pkg/llm"
)

// ProviderEmbedder adapts any pkg/llm.EmbeddingProvider (Ollama, OpenAI,
// or a Redis-cached/resilience-wrapped decorator of either) into the
// engine's narrow Embedder capability.
type ProviderEmbedder struct {
	Provider llm.EmbeddingProvider
}

// NewProviderEmbedder wraps provider as an Embedder.
func NewProviderEmbedder(provider llm.EmbeddingProvider) *ProviderEmbedder {
	return &ProviderEmbedder{Provider: provider}
}

// EmbedDense implements Embedder.
func (p *ProviderEmbedder) EmbedDense(ctx context.Context, text string) ([]float32, error) {
	v, err := p.Provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, errors.ErrUpstream.WithCause(fmt.Errorf("%s embed: %w", p.Provider.Name(), err))
	}
	return v, nil
}

// ProviderSynthesizer adapts a pkg/llm.ChatProvider into the engine's
// narrow Synthesizer capability. model, when non-empty, is passed through
// only if the wrapped provider exposes a model-override hook; the plain
// ChatProvider interface has no per-call model parameter, so by default
// every call uses the provider's configured model.
type ProviderSynthesizer struct {
	Provider llm.ChatProvider
}

// NewProviderSynthesizer wraps provider as a Synthesizer.
func NewProviderSynthesizer(provider llm.ChatProvider) *ProviderSynthesizer {
	return &ProviderSynthesizer{Provider: provider}
}

// modelOverrider is implemented by chat providers that can swap their
// target model per call (e.g. an OpenAI provider backed by several
// deployed models). Providers that don't implement it ignore Synthesize's
// model hint.
type modelOverrider interface {
	WithModel(model string) llm.ChatProvider
}

// Synthesize implements Synthesizer.
func (p *ProviderSynthesizer) Synthesize(ctx context.Context, system, prompt string, maxTokens int, model string) (string, error) {
	provider := p.Provider
	if model != "" {
		if mo, ok := provider.(modelOverrider); ok {
			provider = mo.WithModel(model)
		}
	}
	resp, err := provider.Generate(ctx, prompt, system)
	if err != nil {
		return "", errors.ErrUpstream.WithCause(fmt.Errorf("%s generate: %w", provider.Name(), err))
	}
	if maxTokens > 0 && len(resp.Content) > maxTokens*4 {
		// Crude token budget when the provider doesn't enforce
		// max_tokens itself: roughly 4 bytes per token, cut at a byte
		// offset.
		return resp.Content[:maxTokens*4], nil
	}
	return resp.Content, nil
}
