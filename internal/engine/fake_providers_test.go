package engine

import (
	"context"
	"fmt"
	"strings"
)

// fakeEmbedder turns text into a deterministic bag-of-words vector over a
// small fixed vocabulary dimension, so cosine similarity between two
// embeddings tracks token overlap the way a real sentence embedding would
// for near-duplicate content, without pulling in a model.
type fakeEmbedder struct {
	dim int
	err error
}

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dim: 64} }

func (f *fakeEmbedder) EmbedDense(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	v := make([]float32, f.dim)
	for _, tok := range Tokenize(text) {
		v[hashToken(tok)%uint32(f.dim)]++
	}
	return v, nil
}

// fakeSynthesizer answers sensitivity/digest/identity prompts from a
// canned script keyed by a substring of the prompt; scripts not matched
// fall back to a generic safe reply so tests that don't care about
// classification still get a deterministic non-error response.
type fakeSynthesizer struct {
	sensitivity map[string]string // content substring -> "<level>: <reason>"
	calls       []string
	err         error
}

func newFakeSynthesizer() *fakeSynthesizer {
	return &fakeSynthesizer{sensitivity: map[string]string{}}
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, system, prompt string, _ int, _ string) (string, error) {
	f.calls = append(f.calls, prompt)
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(system, "classify a single memory") {
		for substr, reply := range f.sensitivity {
			if strings.Contains(prompt, substr) {
				return reply, nil
			}
		}
		return "safe: nothing notable", nil
	}
	if strings.Contains(system, "consolidated summary") {
		return fmt.Sprintf("digest of: %s", firstLine(prompt)), nil
	}
	return fmt.Sprintf("profile summary based on: %s", firstLine(prompt)), nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
