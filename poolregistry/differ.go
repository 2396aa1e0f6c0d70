package poolregistry

// PoolRegistryDiff represents the changes required to transition from one
// registry view to another. The registry is append-only, so a diff only
// ever carries additions.
type PoolRegistryDiff struct {
	// Additions contains pools registered since the old view, in id order.
	Additions []Pool `json:"additions,omitempty"`
	// NextID is the id watermark of the new view.
	NextID uint64 `json:"nextId"`
}

// IsEmpty returns true if the diff contains no changes.
func (d PoolRegistryDiff) IsEmpty() bool {
	return len(d.Additions) == 0
}

// Differ calculates the difference between two registry views (Old -> New).
// Because ids are assigned monotonically and entries are immutable, the
// diff is exactly the tail of the new view past the old watermark.
func Differ(old, new PoolRegistryView) PoolRegistryDiff {
	var additions []Pool
	for _, pool := range new.Pools {
		if pool.ID >= old.NextID {
			additions = append(additions, pool)
		}
	}

	return PoolRegistryDiff{
		Additions: additions,
		NextID:    new.NextID,
	}
}
