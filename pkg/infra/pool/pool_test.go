package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitToWithContext_RunsTask(t *testing.T) {
	defer Release()

	var wg sync.WaitGroup
	wg.Add(1)
	var ran bool

	err := SubmitToWithContext(context.Background(), BackgroundPool, func() {
		defer wg.Done()
		ran = true
	})
	require.NoError(t, err)

	wg.Wait()
	assert.True(t, ran)
}

func TestSubmitToWithContext_SkipsAlreadyCancelled(t *testing.T) {
	defer Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SubmitToWithContext(ctx, BackgroundPool, func() {
		t.Fatal("task must not run once ctx is already cancelled")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmitToWithContext_LazilyCreatesNamedPools(t *testing.T) {
	defer Release()

	var wg sync.WaitGroup
	wg.Add(2)

	require.NoError(t, SubmitToWithContext(context.Background(), BackgroundPool, wg.Done))
	require.NoError(t, SubmitToWithContext(context.Background(), "other", wg.Done))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks on lazily-created pools never completed")
	}
}
