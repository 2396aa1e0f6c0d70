package ledger

// LedgerDiff represents the changes required to transition from one
// ledger view to another.
type LedgerDiff struct {
	Additions []PositionView `json:"additions,omitempty"`
	Updates   []PositionView `json:"updates,omitempty"`
	Deletions []uint64       `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d LedgerDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

func positionChanged(old, new PositionView) bool {
	if old.Operator != new.Operator {
		return true
	}
	if old.Nonce != new.Nonce {
		return true
	}
	// PoolID and the tick bounds are fixed for a position's lifetime, so
	// they cannot differ between views of the same id.
	if old.Liquidity.Cmp(new.Liquidity) != 0 {
		return true
	}
	if old.FeeGrowthInside0Last.Cmp(new.FeeGrowthInside0Last) != 0 {
		return true
	}
	if old.FeeGrowthInside1Last.Cmp(new.FeeGrowthInside1Last) != 0 {
		return true
	}
	if old.TokensOwed0.Cmp(new.TokensOwed0) != 0 {
		return true
	}
	if old.TokensOwed1.Cmp(new.TokensOwed1) != 0 {
		return true
	}
	return false
}

// Differ calculates the difference between two ledger views (Old -> New).
// Maps keep the lookups O(1) per position.
func Differ(old, new LedgerView) LedgerDiff {
	oldMap := make(map[uint64]PositionView, len(old.Positions))
	for _, pv := range old.Positions {
		oldMap[pv.ID] = pv
	}

	newMap := make(map[uint64]PositionView, len(new.Positions))
	for _, pv := range new.Positions {
		newMap[pv.ID] = pv
	}

	var additions []PositionView
	var updates []PositionView
	var deletions []uint64

	for newID, newPV := range newMap {
		oldPV, exists := oldMap[newID]
		if !exists {
			additions = append(additions, newPV)
		} else if positionChanged(oldPV, newPV) {
			updates = append(updates, newPV)
		}
	}

	for oldID := range oldMap {
		if _, exists := newMap[oldID]; !exists {
			deletions = append(deletions, oldID)
		}
	}

	return LedgerDiff{
		Additions: additions,
		Updates:   updates,
		Deletions: deletions,
	}
}
