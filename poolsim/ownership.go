package poolsim

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/position-ledger-go/auth"
	"github.com/defistate/position-ledger-go/coordinator"
)

// OwnershipBook combines the identifier-minting and ownership/approval
// collaborators: minting a fresh identifier records its recipient as
// owner, the way an NFT contract would.
type OwnershipBook struct {
	nextID      uint64
	owners      map[uint64]common.Address
	approved    map[uint64]common.Address
	operatorAll map[common.Address]map[common.Address]bool
}

// NewOwnershipBook creates an empty book; identifiers start at 1.
func NewOwnershipBook() *OwnershipBook {
	return &OwnershipBook{
		nextID:      1,
		owners:      make(map[uint64]common.Address),
		approved:    make(map[uint64]common.Address),
		operatorAll: make(map[common.Address]map[common.Address]bool),
	}
}

var (
	_ coordinator.IdentifierMinter = (*OwnershipBook)(nil)
	_ auth.OwnershipStore          = (*OwnershipBook)(nil)
)

// Mint implements coordinator.IdentifierMinter.
func (b *OwnershipBook) Mint(recipient common.Address) (uint64, error) {
	id := b.nextID
	b.nextID++
	b.owners[id] = recipient
	return id, nil
}

// OwnerOf implements auth.OwnershipStore.
func (b *OwnershipBook) OwnerOf(id uint64) (common.Address, error) {
	owner, ok := b.owners[id]
	if !ok {
		return common.Address{}, fmt.Errorf("poolsim: unknown identifier %d", id)
	}
	return owner, nil
}

// GetApproved implements auth.OwnershipStore.
func (b *OwnershipBook) GetApproved(id uint64) (common.Address, error) {
	return b.approved[id], nil
}

// IsApprovedForAll implements auth.OwnershipStore.
func (b *OwnershipBook) IsApprovedForAll(owner, operator common.Address) (bool, error) {
	return b.operatorAll[owner][operator], nil
}

// Approve grants a per-token approval.
func (b *OwnershipBook) Approve(id uint64, operator common.Address) {
	b.approved[id] = operator
}

// SetApprovalForAll grants or revokes an operator over all of owner's
// positions.
func (b *OwnershipBook) SetApprovalForAll(owner, operator common.Address, approved bool) {
	ops, ok := b.operatorAll[owner]
	if !ok {
		ops = make(map[common.Address]bool)
		b.operatorAll[owner] = ops
	}
	ops[operator] = approved
}
