package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/memoryctl/internal/tenant"
)

// toggleEmbedder lets a test flip an embedding failure on after setup
// writes have already succeeded, to exercise Recall's "hybrid stage
// failed, fall back to lexical" path.
type toggleEmbedder struct {
	inner   *fakeEmbedder
	failing bool
}

func (t *toggleEmbedder) EmbedDense(ctx context.Context, text string) ([]float32, error) {
	if t.failing {
		return nil, errors.New("embedding service unavailable")
	}
	return t.inner.EmbedDense(ctx, text)
}

func TestRecall_NoMemoriesSentinel(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	lines, err := e.Recall(ctx, tctx, "anything at all")
	require.NoError(t, err)
	require.Equal(t, []string{NoMemoriesFound}, lines)
}

func TestRecall_LexicalFallbackWhenHybridFails(t *testing.T) {
	embedder := &toggleEmbedder{inner: newFakeEmbedder()}
	synth := newFakeSynthesizer()
	e := New(newFakeIndex(), embedder, synth, Config{})
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	msg, err := e.Remember(ctx, tctx, RememberInput{Content: "deploy freeze starts next Thursday", Gate: "epistemic"})
	require.NoError(t, err)
	id := extractID(t, msg)

	embedder.failing = true

	lines, err := e.Recall(ctx, tctx, "deploy freeze")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], id)
	require.Contains(t, lines[0], "text ")
}

func TestRecall_UnindexedQueryTokenFallsBackWithoutError(t *testing.T) {
	embedder := &toggleEmbedder{inner: newFakeEmbedder(), failing: true}
	synth := newFakeSynthesizer()
	e := New(newFakeIndex(), embedder, synth, Config{})
	ctx := context.Background()
	tctx := tenant.Context{UserID: "u1"}

	lines, err := e.Recall(ctx, tctx, "zzznonexistenttoken")
	require.NoError(t, err)
	require.Equal(t, []string{NoMemoriesFound}, lines)
}
