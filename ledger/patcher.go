package ledger

import "fmt"

// Patcher constructs a new ledger view by applying a diff to a previous
// view. The previous view is never mutated; every position in the result
// is deep-copied so the output owns its memory. Deleted ids move to the
// retired list, mirroring the ledger's own destroy semantics; an addition
// carrying a retired id is rejected the same way Create refuses one.
func Patcher(prevState LedgerView, diff LedgerDiff) (LedgerView, error) {
	posMap := make(map[uint64]PositionView, len(prevState.Positions))
	for _, pv := range prevState.Positions {
		posMap[pv.ID] = pv
	}

	retired := make(map[uint64]struct{}, len(prevState.Retired)+len(diff.Deletions))
	for _, id := range prevState.Retired {
		retired[id] = struct{}{}
	}

	for _, id := range diff.Deletions {
		delete(posMap, id)
		retired[id] = struct{}{}
	}

	for _, pv := range diff.Updates {
		posMap[pv.ID] = pv
	}

	for _, pv := range diff.Additions {
		if _, dead := retired[pv.ID]; dead {
			return LedgerView{}, fmt.Errorf("ledger patch: addition revives retired position %d", pv.ID)
		}
		posMap[pv.ID] = pv
	}

	// Rebuild through a ledger so the result is deep-copied and ordered
	// the same way a live snapshot is.
	rebuilt := &PositionLedger{
		positions: make(map[uint64]*Position, len(posMap)),
		retired:   retired,
	}
	for id, pv := range posMap {
		pos := pv.Position
		pos.normalize()
		rebuilt.positions[id] = copyPosition(&pos)
	}

	return rebuilt.View(), nil
}
