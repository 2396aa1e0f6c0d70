package poolregistry

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
)

const Schema = "defistate/position-ledger/PoolRegistryView@v1"

var (
	// ErrNotFound is returned when no entry exists for a compact id.
	ErrNotFound = errors.New("pool id not found")
	// ErrCapacityExhausted is returned when the compact id space is used up.
	// This is fatal: ids are fixed-width and never reused.
	ErrCapacityExhausted = errors.New("pool id space exhausted")
	// ErrInvalidPoolKey is returned for keys that violate canonical ordering.
	ErrInvalidPoolKey = errors.New("invalid pool key")
)

// PoolKey identifies a pool by its token pair and fee tier. The pair is
// canonical: Token0 must sort strictly below Token1. Keys are immutable
// once registered.
type PoolKey struct {
	Token0 common.Address `json:"token0"`
	Token1 common.Address `json:"token1"`
	Fee    uint32         `json:"fee"` // fee tier in hundredths of a bip, e.g. 3000 = 0.30%
}

// Validate checks the canonical ordering invariant.
func (k PoolKey) Validate() error {
	if k.Token0.Cmp(k.Token1) >= 0 {
		return fmt.Errorf("%w: token0 %s must sort below token1 %s", ErrInvalidPoolKey, k.Token0, k.Token1)
	}
	return nil
}

// Pool represents the data for a single registered pool.
type Pool struct {
	ID  uint64  `json:"id"`
	Key PoolKey `json:"key"`
}

// PoolRegistryView represents the complete state of the registry.
type PoolRegistryView struct {
	Pools  []Pool `json:"pools"`
	NextID uint64 `json:"nextId"`
}

// PoolRegistry assigns compact uint64 ids to pool keys so that per-position
// storage only carries an id instead of a full key. It is a simple,
// non-thread-safe structure; the execution environment serializes mutations.
//
// Ids start at 1 and increase by 1 with no gaps; 0 is the "unassigned"
// sentinel. Entries are never deleted and ids are never reused.
type PoolRegistry struct {
	keyToID map[PoolKey]uint64
	pools   []Pool
	nextID  uint64
}

// NewPoolRegistry creates a new, empty registry.
func NewPoolRegistry() *PoolRegistry {
	return &PoolRegistry{
		keyToID: make(map[PoolKey]uint64),
		pools:   make([]Pool, 0),
		nextID:  1,
	}
}

// NewPoolRegistryFromView reconstructs a registry from a view snapshot.
// It deep-copies the view data so the new registry has full ownership of
// its memory. Ids are dense and 1-based, so the view's pools must appear
// in id order with no gaps and NextID must sit one past the last entry;
// Lookup indexes the slice directly on that contract.
func NewPoolRegistryFromView(view PoolRegistryView) (*PoolRegistry, error) {
	nextID := view.NextID
	if nextID == 0 {
		nextID = 1
	}
	if nextID != uint64(len(view.Pools))+1 {
		return nil, fmt.Errorf("pool registry view: next id %d does not follow %d pools", view.NextID, len(view.Pools))
	}

	keyToID := make(map[PoolKey]uint64, len(view.Pools))
	pools := make([]Pool, len(view.Pools))
	copy(pools, view.Pools)

	for i, pool := range pools {
		if pool.ID != uint64(i)+1 {
			return nil, fmt.Errorf("pool registry view: pool at index %d carries id %d, want %d", i, pool.ID, i+1)
		}
		if _, dup := keyToID[pool.Key]; dup {
			return nil, fmt.Errorf("pool registry view: duplicate key for pool %d", pool.ID)
		}
		keyToID[pool.Key] = pool.ID
	}

	return &PoolRegistry{
		keyToID: keyToID,
		pools:   pools,
		nextID:  nextID,
	}, nil
}

// Resolve returns the compact id assigned to key, assigning the next free
// id if the key has never been seen. Resolving an already-registered key is
// idempotent and performs no mutation.
func (r *PoolRegistry) Resolve(key PoolKey) (uint64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}

	if id, ok := r.keyToID[key]; ok {
		return id, nil
	}

	if r.nextID == math.MaxUint64 {
		return 0, ErrCapacityExhausted
	}

	id := r.nextID
	r.nextID++
	r.keyToID[key] = id
	r.pools = append(r.pools, Pool{ID: id, Key: key})
	return id, nil
}

// Lookup returns the key registered under the compact id.
func (r *PoolRegistry) Lookup(id uint64) (PoolKey, error) {
	if id == 0 || id >= r.nextID {
		return PoolKey{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	// Ids are dense and 1-based, so the slice index is id-1.
	return r.pools[id-1].Key, nil
}

// Len returns the number of registered pools.
func (r *PoolRegistry) Len() int {
	return len(r.pools)
}

// View returns a snapshot of the registry. The returned slice is a copy;
// callers may hold it across mutations.
func (r *PoolRegistry) View() PoolRegistryView {
	pools := make([]Pool, len(r.pools))
	copy(pools, r.pools)
	return PoolRegistryView{
		Pools:  pools,
		NextID: r.nextID,
	}
}
