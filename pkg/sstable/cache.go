// pkg/sstable/cache.go
package sstable

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"ember/pkg/kverrors"
)

// blockKey identifies a cached block by the SST it belongs to and its
// index within that SST.
type blockKey struct {
	sstID uint64
	idx   int
}

// BlockCache is the shared cache consulted by read_block_cached. It
// guarantees at-most-one concurrent load per (sstID, idx): concurrent
// misses on the same key block on a single underlying load rather than
// each issuing their own disk read, the Go-idiomatic equivalent of the
// `moka::sync::Cache::try_get_with` pattern this package is grounded on.
type BlockCache struct {
	lru    *lru.Cache[blockKey, *Block]
	flight singleflight.Group
}

// NewBlockCache returns a BlockCache holding up to capacity blocks.
func NewBlockCache(capacity int) (*BlockCache, error) {
	c, err := lru.New[blockKey, *Block](capacity)
	if err != nil {
		return nil, kverrors.Internalf("constructing block cache: %v", err)
	}
	return &BlockCache{lru: c}, nil
}

// GetOrLoad returns the cached block for (sstID, idx), loading it via load
// on a miss. Concurrent GetOrLoad calls for the same key share one load.
func (c *BlockCache) GetOrLoad(sstID uint64, idx int, load func() (*Block, error)) (*Block, error) {
	key := blockKey{sstID: sstID, idx: idx}
	if b, ok := c.lru.Get(key); ok {
		return b, nil
	}

	flightKey := fmt.Sprintf("%d:%d", sstID, idx)
	v, err, _ := c.flight.Do(flightKey, func() (any, error) {
		if b, ok := c.lru.Get(key); ok {
			return b, nil
		}
		b, err := load()
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, b)
		return b, nil
	})
	if err != nil {
		return nil, kverrors.Internalf("loading block (%d,%d): %v", sstID, idx, err)
	}
	return v.(*Block), nil
}
