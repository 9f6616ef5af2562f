// Package storage defines the common client/factory/health contract that
// the mongodb and redis component wrappers implement (the milvus wrapper
// does not), so the
// rest of memoryctl can depend on a storage backend without importing its
// concrete driver package.
package storage

import (
	"context"
	"time"
)

// Client is the minimal lifecycle surface every storage component exposes.
type Client interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error
	Health() HealthChecker
}

// HealthChecker reports whether a client's backend is currently reachable.
type HealthChecker func() error

// HealthStatus is a point-in-time health snapshot for one client.
type HealthStatus struct {
	Name    string
	Healthy bool
	Latency time.Duration
	Error   error
}

// Factory constructs a Client from whatever configuration it closed over.
type Factory interface {
	Create(ctx context.Context) (Client, error)
}
