package feemath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// Q128 is the fixed-point scaling factor for fee-growth values (2^128).
	Q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	// MaxUint128 is the maximum value of a uint128 field (2^128 - 1).
	MaxUint128 = new(uint256.Int).SubUint64(Q128, 1)

	ErrLiquidityOverflow  = errors.New("liquidity overflow")
	ErrLiquidityUnderflow = errors.New("liquidity underflow")
)

// GrowthDelta writes current - last into dest using wraparound (mod 2^256)
// subtraction. The pool's growth counters are allowed to overflow, so a
// counter that wrapped past its maximum still yields the correct positive
// delta.
func GrowthDelta(dest, current, last *uint256.Int) *uint256.Int {
	return dest.Sub(current, last)
}

// OwedDelta writes floor(delta * liquidity / 2^128) into dest. The
// multiplication uses a 512-bit intermediate, so a full 256-bit delta
// times a 128-bit liquidity never loses precision. The fractional
// remainder is discarded.
func OwedDelta(dest, delta, liquidity *uint256.Int) *uint256.Int {
	// liquidity <= MaxUint128 by the ledger's invariants, so the quotient
	// always fits 256 bits and the overflow flag cannot trip.
	dest.MulDivOverflow(delta, liquidity, Q128)
	return dest
}

// AddOwed writes owed + delta into dest, saturating at MaxUint128 instead
// of wrapping. Fee accrual must never silently lose value through
// overflow; at saturation the field pins to its maximum and the caller is
// told so it can surface the condition. Returns true if the result
// saturated.
func AddOwed(dest, owed, delta *uint256.Int) bool {
	_, carry := dest.AddOverflow(owed, delta)
	if carry || dest.Gt(MaxUint128) {
		dest.Set(MaxUint128)
		return true
	}
	return false
}

// Accrual is the result of refreshing a position's fee accounting against
// the pool's current growth counters.
type Accrual struct {
	Owed0     *uint256.Int
	Owed1     *uint256.Int
	Snapshot0 *uint256.Int
	Snapshot1 *uint256.Int
	Saturated bool
}

// Accrue computes the new owed-token totals and snapshots for a position.
//
// Growth deltas are taken modulo 2^256 against the last-observed
// snapshots, converted to owed tokens by the floor-division Q128 formula,
// and added to the running totals with saturation. Snapshots always
// advance to the current counters, even at zero liquidity, so a future
// liquidity re-addition never replays an ever-growing delta range.
func Accrue(liquidity, last0, last1, current0, current1, owed0, owed1 *uint256.Int) Accrual {
	var delta, owedDelta uint256.Int

	out := Accrual{
		Owed0:     new(uint256.Int),
		Owed1:     new(uint256.Int),
		Snapshot0: new(uint256.Int).Set(current0),
		Snapshot1: new(uint256.Int).Set(current1),
	}

	GrowthDelta(&delta, current0, last0)
	OwedDelta(&owedDelta, &delta, liquidity)
	if AddOwed(out.Owed0, owed0, &owedDelta) {
		out.Saturated = true
	}

	GrowthDelta(&delta, current1, last1)
	OwedDelta(&owedDelta, &delta, liquidity)
	if AddOwed(out.Owed1, owed1, &owedDelta) {
		out.Saturated = true
	}

	return out
}

// AddLiquidity writes x + y into dest, failing if the sum exceeds the
// uint128 range a position's liquidity is stored in.
func AddLiquidity(dest, x, y *uint256.Int) error {
	_, carry := dest.AddOverflow(x, y)
	if carry || dest.Gt(MaxUint128) {
		return ErrLiquidityOverflow
	}
	return nil
}

// SubLiquidity writes x - y into dest, failing if y exceeds x.
func SubLiquidity(dest, x, y *uint256.Int) error {
	if y.Gt(x) {
		return ErrLiquidityUnderflow
	}
	dest.Sub(x, y)
	return nil
}
