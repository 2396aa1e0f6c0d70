package auth

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/position-ledger-go/ledger"
)

var (
	// ErrUnauthorized is returned when the caller holds no rights over the
	// position.
	ErrUnauthorized = errors.New("caller not authorized for position")
)

// OwnershipStore resolves current ownership and delegated approvals for
// position identifiers. Ownership itself lives outside the ledger (the
// identifiers are externally minted as NFTs); the guard only consumes it.
type OwnershipStore interface {
	// OwnerOf returns the current owner of the position identifier.
	OwnerOf(id uint64) (common.Address, error)
	// GetApproved returns the single address approved for the identifier,
	// zero if none.
	GetApproved(id uint64) (common.Address, error)
	// IsApprovedForAll reports whether operator may act on every position
	// owned by owner.
	IsApprovedForAll(owner, operator common.Address) (bool, error)
}

// Guard resolves who may act on a position: the owner, the position's
// recorded operator, or a delegated approval from the ownership store.
// It also fronts the per-position replay-protection nonce.
type Guard struct {
	owners OwnershipStore
	ledger *ledger.PositionLedger
}

// NewGuard creates a guard over the given ownership store and ledger.
func NewGuard(owners OwnershipStore, l *ledger.PositionLedger) (*Guard, error) {
	if owners == nil {
		return nil, errors.New("guard: OwnershipStore is required")
	}
	if l == nil {
		return nil, errors.New("guard: PositionLedger is required")
	}
	return &Guard{owners: owners, ledger: l}, nil
}

// Authorize returns nil iff caller may act on the position: caller is the
// recorded owner, the position's operator, the per-token approved address,
// or an operator-for-all of the owner. A missing position surfaces as
// ledger.ErrNotFound.
func (g *Guard) Authorize(caller common.Address, positionID uint64) error {
	pos, err := g.ledger.Get(positionID)
	if err != nil {
		return err
	}

	if pos.Operator != (common.Address{}) && caller == pos.Operator {
		return nil
	}

	owner, err := g.owners.OwnerOf(positionID)
	if err != nil {
		return fmt.Errorf("guard: resolve owner of %d: %w", positionID, err)
	}
	if caller == owner {
		return nil
	}

	approved, err := g.owners.GetApproved(positionID)
	if err != nil {
		return fmt.Errorf("guard: resolve approval of %d: %w", positionID, err)
	}
	if approved != (common.Address{}) && caller == approved {
		return nil
	}

	all, err := g.owners.IsApprovedForAll(owner, caller)
	if err != nil {
		return fmt.Errorf("guard: resolve operator approval of %d: %w", positionID, err)
	}
	if all {
		return nil
	}

	return fmt.Errorf("%w: caller %s, position %d", ErrUnauthorized, caller, positionID)
}

// ConsumeNonce returns the position's current nonce and increments it.
// Each signed one-time authorization consumes exactly one nonce, so a
// previously consumed value can never satisfy a later signature check.
func (g *Guard) ConsumeNonce(positionID uint64) (uint64, error) {
	return g.ledger.ConsumeNonce(positionID)
}
