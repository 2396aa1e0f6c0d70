package poolregistry

import "fmt"

// Patcher constructs a new registry view by applying a diff to a previous
// view. The previous view is never mutated; the result owns its memory.
func Patcher(prevState PoolRegistryView, diff PoolRegistryDiff) (PoolRegistryView, error) {
	pools := make([]Pool, len(prevState.Pools), len(prevState.Pools)+len(diff.Additions))
	copy(pools, prevState.Pools)

	// Additions must extend the id sequence without gaps or overlap.
	expected := prevState.NextID
	if expected == 0 {
		expected = 1
	}
	for _, added := range diff.Additions {
		if added.ID != expected {
			return PoolRegistryView{}, fmt.Errorf("pool registry patch: expected id %d, got %d", expected, added.ID)
		}
		pools = append(pools, added)
		expected++
	}

	nextID := diff.NextID
	if nextID == 0 {
		nextID = expected
	}
	if nextID != expected {
		return PoolRegistryView{}, fmt.Errorf("pool registry patch: watermark %d does not match applied additions (want %d)", nextID, expected)
	}

	return PoolRegistryView{
		Pools:  pools,
		NextID: nextID,
	}, nil
}
