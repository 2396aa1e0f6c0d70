package ledger

import (
	"fmt"
	"sort"
)

const Schema = "defistate/position-ledger/LedgerView@v1"

// PositionView is the externally visible form of one position record.
type PositionView struct {
	ID uint64 `json:"id"`
	Position
}

// LedgerView represents the complete state of the position ledger.
// Retired carries destroyed identifiers so a restored ledger keeps
// refusing to revive them.
type LedgerView struct {
	Positions []PositionView `json:"positions"`
	Retired   []uint64       `json:"retired,omitempty"`
}

// View returns a deep-copied snapshot of the ledger, positions in id order.
func (l *PositionLedger) View() LedgerView {
	positions := make([]PositionView, 0, len(l.positions))
	for id, pos := range l.positions {
		positions = append(positions, PositionView{ID: id, Position: *copyPosition(pos)})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].ID < positions[j].ID })

	retired := make([]uint64, 0, len(l.retired))
	for id := range l.retired {
		retired = append(retired, id)
	}
	sort.Slice(retired, func(i, j int) bool { return retired[i] < retired[j] })

	return LedgerView{
		Positions: positions,
		Retired:   retired,
	}
}

// NewPositionLedgerFromView reconstructs a ledger from a view snapshot,
// deep-copying all data.
func NewPositionLedgerFromView(view LedgerView) (*PositionLedger, error) {
	l := NewPositionLedger()

	for _, id := range view.Retired {
		l.retired[id] = struct{}{}
	}

	for _, pv := range view.Positions {
		if _, dead := l.retired[pv.ID]; dead {
			return nil, fmt.Errorf("ledger view: position %d is both live and retired", pv.ID)
		}
		if _, dup := l.positions[pv.ID]; dup {
			return nil, fmt.Errorf("ledger view: duplicate position %d", pv.ID)
		}
		pos := pv.Position
		pos.normalize()
		l.positions[pv.ID] = copyPosition(&pos)
	}

	return l, nil
}
