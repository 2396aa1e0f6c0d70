package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no live position exists for an id.
	ErrNotFound = errors.New("position not found")
	// ErrNotEmpty is returned when destroying a position that still holds
	// liquidity or owed tokens.
	ErrNotEmpty = errors.New("position not empty")
	// ErrExists is returned when creating a position under a live id.
	ErrExists = errors.New("position already exists")
	// ErrRetired is returned when creating a position under a destroyed id.
	// Destroyed identifiers are terminal and never revived.
	ErrRetired = errors.New("position id retired")
	// ErrZeroLiquidity is returned when creating a position without an
	// initial deposit.
	ErrZeroLiquidity = errors.New("position must be created with liquidity")
)

// PositionLedger owns the authoritative record per position identifier.
// It is a simple, non-thread-safe structure; the execution environment
// serializes mutating operations, so no locking is required. Every
// accessor hands out deep copies, never live records.
type PositionLedger struct {
	positions map[uint64]*Position
	retired   map[uint64]struct{}
}

// NewPositionLedger creates a new, empty ledger.
func NewPositionLedger() *PositionLedger {
	return &PositionLedger{
		positions: make(map[uint64]*Position),
		retired:   make(map[uint64]struct{}),
	}
}

// Create records a new position under id. Positions come into existence
// atomically with their first deposit, so zero liquidity is rejected.
func (l *PositionLedger) Create(id uint64, pos Position) error {
	if _, dead := l.retired[id]; dead {
		return fmt.Errorf("%w: %d", ErrRetired, id)
	}
	if _, live := l.positions[id]; live {
		return fmt.Errorf("%w: %d", ErrExists, id)
	}

	pos.normalize()
	if pos.Liquidity.IsZero() {
		return ErrZeroLiquidity
	}

	l.positions[id] = copyPosition(&pos)
	return nil
}

// Get returns a deep copy of the position record.
func (l *PositionLedger) Get(id uint64) (Position, error) {
	pos, ok := l.positions[id]
	if !ok {
		return Position{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return *copyPosition(pos), nil
}

// Update applies mutate to a copy of the record and commits the copy only
// if mutate succeeds. A failing mutate leaves the ledger untouched, which
// gives callers all-or-nothing semantics over a position's fields.
func (l *PositionLedger) Update(id uint64, mutate func(*Position) error) error {
	pos, ok := l.positions[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	next := copyPosition(pos)
	if err := mutate(next); err != nil {
		return err
	}
	next.normalize()

	l.positions[id] = next
	return nil
}

// Remove destroys the position record permanently. Only empty positions
// (no liquidity, no owed tokens) may be destroyed; the id is retired and
// can never be recreated.
func (l *PositionLedger) Remove(id uint64) error {
	pos, ok := l.positions[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if !pos.Empty() {
		return fmt.Errorf("%w: %d", ErrNotEmpty, id)
	}

	delete(l.positions, id)
	l.retired[id] = struct{}{}
	return nil
}

// ConsumeNonce returns the position's current nonce and increments it.
// A returned value is never handed out again for the same position, which
// is what makes one-time signed authorizations replay-proof.
func (l *PositionLedger) ConsumeNonce(id uint64) (uint64, error) {
	pos, ok := l.positions[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	nonce := pos.Nonce
	pos.Nonce++
	return nonce, nil
}

// Len returns the number of live positions.
func (l *PositionLedger) Len() int {
	return len(l.positions)
}
