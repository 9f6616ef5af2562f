package store

import (
	"github.com/kart-io/memoryctl/pkg/component/milvus"
)

// NewMilvusIndexFromComponent builds a MilvusIndex on top of an
// already-connected component client, so the index shares that client's
// connection lifecycle (and whatever options/health wiring produced it)
// instead of opening a second connection of its own.
func NewMilvusIndexFromComponent(c *milvus.Client, collection string, dim int) *MilvusIndex {
	return NewMilvusIndex(c.RawClient(), collection, dim)
}
