package mongodb

import (
	"context"
	"fmt"

	"github.com/kart-io/memoryctl/pkg/component/storage"
	options "github.com/kart-io/memoryctl/pkg/options/mongodb"
)

// Factory implements the storage.Factory interface for creating MongoDB
// clients, mirroring the Redis component's factory.
type Factory struct {
	opts *options.Options
}

// NewFactory creates a new MongoDB client factory with the provided options.
func NewFactory(opts *options.Options) *Factory {
	return &Factory{
		opts: opts,
	}
}

// Create creates and initializes a new MongoDB client, verifying
// connectivity before returning it.
//
// Implements storage.Factory interface.
func (f *Factory) Create(ctx context.Context) (storage.Client, error) {
	if f.opts == nil {
		return nil, fmt.Errorf("mongodb options cannot be nil")
	}

	client, err := NewWithContext(ctx, f.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongodb client: %w", err)
	}

	return client, nil
}

// Options returns the MongoDB options used by this factory.
func (f *Factory) Options() *options.Options {
	return f.opts
}

// Clone creates a new factory with a copy of the current options.
func (f *Factory) Clone() *Factory {
	optsCopy := *f.opts
	return &Factory{
		opts: &optsCopy,
	}
}

// Compile-time check that Factory implements storage.Factory.
var _ storage.Factory = (*Factory)(nil)
