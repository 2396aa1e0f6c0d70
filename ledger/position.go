package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Position is the authoritative record for one liquidity position. The
// ledger is the only owner of Position memory; everything outside the
// ledger sees deep copies.
//
// Ownership of the position itself lives in the external ownership store;
// Operator is the separately delegated management address, zero if unset.
type Position struct {
	Operator common.Address `json:"operator"`

	// PoolID is the compact registry id of the pool the position sits in.
	PoolID uint64 `json:"poolId"`

	// Tick range bounds, fixed for the position's lifetime.
	TickLower int32 `json:"tickLower"`
	TickUpper int32 `json:"tickUpper"`

	// Liquidity is the position's current contribution, a uint128 magnitude.
	Liquidity *uint256.Int `json:"liquidity"`

	// Last-observed per-unit-liquidity cumulative fee growth for each side,
	// Q128.128 fixed point. Baselines for the next accrual delta.
	FeeGrowthInside0Last *uint256.Int `json:"feeGrowthInside0Last"`
	FeeGrowthInside1Last *uint256.Int `json:"feeGrowthInside1Last"`

	// Accrued-but-uncollected token amounts, uint128 magnitudes. They only
	// decrease when explicitly collected.
	TokensOwed0 *uint256.Int `json:"tokensOwed0"`
	TokensOwed1 *uint256.Int `json:"tokensOwed1"`

	// Nonce is consumed by one-time signed authorizations. Strictly
	// increasing, never reset.
	Nonce uint64 `json:"nonce"`
}

// Empty reports whether the position holds no liquidity and no owed
// tokens, i.e. whether it may be destroyed.
func (p *Position) Empty() bool {
	return p.Liquidity.IsZero() && p.TokensOwed0.IsZero() && p.TokensOwed1.IsZero()
}

// copyPosition creates a deep copy so the uint256 fields get their own memory.
func copyPosition(p *Position) *Position {
	cp := *p
	cp.Liquidity = new(uint256.Int).Set(p.Liquidity)
	cp.FeeGrowthInside0Last = new(uint256.Int).Set(p.FeeGrowthInside0Last)
	cp.FeeGrowthInside1Last = new(uint256.Int).Set(p.FeeGrowthInside1Last)
	cp.TokensOwed0 = new(uint256.Int).Set(p.TokensOwed0)
	cp.TokensOwed1 = new(uint256.Int).Set(p.TokensOwed1)
	return &cp
}

// normalize replaces nil numeric fields with fresh zeros. Views that went
// through JSON may omit zero-valued fields.
func (p *Position) normalize() {
	if p.Liquidity == nil {
		p.Liquidity = new(uint256.Int)
	}
	if p.FeeGrowthInside0Last == nil {
		p.FeeGrowthInside0Last = new(uint256.Int)
	}
	if p.FeeGrowthInside1Last == nil {
		p.FeeGrowthInside1Last = new(uint256.Int)
	}
	if p.TokensOwed0 == nil {
		p.TokensOwed0 = new(uint256.Int)
	}
	if p.TokensOwed1 == nil {
		p.TokensOwed1 = new(uint256.Int)
	}
}
