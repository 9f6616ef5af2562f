// Package pool adapts panjf2000/ants into the one worker pool Recall
// offloads its index queries onto, keeping the caller's goroutine off
// native library calls. memoryctl has exactly one offload site, so the
// pool is created lazily on first submit rather than through a global
// registration phase at process startup.
package pool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// BackgroundPool names the pool this package lazily creates on first
// submit: the worker pool Recall's hybrid stage runs on.
const BackgroundPool = "background"

// config tunes the lazily-created pool. Retrieval offload is bursty but
// bounded by how many concurrent Recall calls a process actually serves,
// so a modest capacity with a blocking submit (never silently drop a
// Recall) is the right default.
var config = struct {
	capacity         int
	expiryDuration   time.Duration
	maxBlockingTasks int
}{
	capacity:         50,
	expiryDuration:   60 * time.Second,
	maxBlockingTasks: 100,
}

var (
	mu    sync.Mutex
	pools = map[string]*ants.Pool{}
)

func getOrCreate(name string) (*ants.Pool, error) {
	mu.Lock()
	defer mu.Unlock()

	if p, ok := pools[name]; ok {
		return p, nil
	}

	p, err := ants.NewPool(config.capacity,
		ants.WithExpiryDuration(config.expiryDuration),
		ants.WithMaxBlockingTasks(config.maxBlockingTasks),
		ants.WithPanicHandler(func(r interface{}) {
			logger.Errorw("goroutine panic recovered in pool",
				"pool", name, "panic", fmt.Sprintf("%v", r), "stack", string(debug.Stack()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create pool %q: %w", name, err)
	}

	pools[name] = p
	return p, nil
}

// SubmitToWithContext submits task to the named pool, creating it lazily
// on first use. The task is skipped entirely if ctx is already cancelled
// at submit time, and again right before it runs, so a cancelled Recall
// never does wasted retrieval work on a queued worker.
func SubmitToWithContext(ctx context.Context, name string, task func()) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p, err := getOrCreate(name)
	if err != nil {
		return err
	}

	return p.Submit(func() {
		select {
		case <-ctx.Done():
			return
		default:
			task()
		}
	})
}

// Release tears down every pool created so far, for tests and for a
// process's orderly shutdown path.
func Release() {
	mu.Lock()
	defer mu.Unlock()
	for name, p := range pools {
		p.Release()
		delete(pools, name)
	}
}
