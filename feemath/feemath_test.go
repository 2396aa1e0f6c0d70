package feemath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint256.Int { return uint256.NewInt(v) }

// q128 returns v scaled by 2^128, i.e. a fee-growth value of v whole
// tokens per unit of liquidity.
func q128(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), Q128)
}

func TestGrowthDelta(t *testing.T) {

	t.Run("Monotonic", func(t *testing.T) {
		var dest uint256.Int
		GrowthDelta(&dest, q128(10), q128(4))
		assert.Equal(t, q128(6), &dest)
	})

	t.Run("Wraparound", func(t *testing.T) {
		// The counter wrapped: last sat near the top of the range, current
		// is small. The modular delta must still be the true growth.
		last := new(uint256.Int).Sub(new(uint256.Int).Not(u64(0)), u64(4)) // 2^256 - 5
		current := u64(10)

		var dest uint256.Int
		GrowthDelta(&dest, current, last)
		assert.Equal(t, u64(15), &dest)
	})

	t.Run("ZeroDelta", func(t *testing.T) {
		var dest uint256.Int
		GrowthDelta(&dest, q128(7), q128(7))
		assert.True(t, dest.IsZero())
	})
}

func TestOwedDelta(t *testing.T) {

	t.Run("FullTokensPerLiquidity", func(t *testing.T) {
		// delta of 3 tokens/liquidity at liquidity 500 owes 1500 tokens.
		var dest uint256.Int
		OwedDelta(&dest, q128(3), u64(500))
		assert.Equal(t, u64(1500), &dest)
	})

	t.Run("FloorsFraction", func(t *testing.T) {
		// delta = 1/2^128 per unit at liquidity 1 owes 0 (floor).
		var dest uint256.Int
		OwedDelta(&dest, u64(1), u64(1))
		assert.True(t, dest.IsZero())

		// At liquidity 2^128 the same delta owes exactly 1.
		OwedDelta(&dest, u64(1), Q128)
		assert.Equal(t, u64(1), &dest)
	})

	t.Run("ZeroLiquidity", func(t *testing.T) {
		var dest uint256.Int
		OwedDelta(&dest, q128(1000000), u64(0))
		assert.True(t, dest.IsZero())
	})

	t.Run("FullWidthDeltaNoPrecisionLoss", func(t *testing.T) {
		// delta occupying all 256 bits times a 128-bit liquidity must not
		// truncate: (2^256-1) * 2^127 >> 128 == (2^256-1) >> 1.
		delta := new(uint256.Int).Not(u64(0))
		liquidity := new(uint256.Int).Lsh(u64(1), 127)

		var dest uint256.Int
		OwedDelta(&dest, delta, liquidity)

		want := new(uint256.Int).Rsh(delta, 1)
		assert.Equal(t, want, &dest)
	})
}

func TestAddOwed(t *testing.T) {

	t.Run("PlainAdd", func(t *testing.T) {
		var dest uint256.Int
		saturated := AddOwed(&dest, u64(100), u64(50))
		assert.False(t, saturated)
		assert.Equal(t, u64(150), &dest)
	})

	t.Run("SaturatesAtMaxUint128", func(t *testing.T) {
		var dest uint256.Int
		saturated := AddOwed(&dest, MaxUint128, u64(1))
		assert.True(t, saturated)
		assert.Equal(t, MaxUint128, &dest)
	})

	t.Run("SaturatesOn256BitCarry", func(t *testing.T) {
		top := new(uint256.Int).Not(u64(0))
		var dest uint256.Int
		saturated := AddOwed(&dest, top, top)
		assert.True(t, saturated)
		assert.Equal(t, MaxUint128, &dest)
	})
}

func TestAccrue(t *testing.T) {

	t.Run("AdvancesSnapshotsAtZeroLiquidity", func(t *testing.T) {
		out := Accrue(u64(0), q128(1), q128(1), q128(9), q128(9), u64(0), u64(0))

		assert.True(t, out.Owed0.IsZero())
		assert.True(t, out.Owed1.IsZero())
		assert.Equal(t, q128(9), out.Snapshot0)
		assert.Equal(t, q128(9), out.Snapshot1)
		assert.False(t, out.Saturated)
	})

	t.Run("AccruesBothSides", func(t *testing.T) {
		out := Accrue(u64(100), q128(0), q128(0), q128(2), q128(5), u64(7), u64(11))

		assert.Equal(t, u64(207), out.Owed0)
		assert.Equal(t, u64(511), out.Owed1)
	})

	t.Run("OrderIndependence", func(t *testing.T) {
		// Accruing 0 -> 4 -> 10 in two steps equals accruing 0 -> 10 in
		// one, for the same liquidity over the same growth range.
		liquidity := u64(333)

		step := Accrue(liquidity, q128(0), q128(0), q128(4), q128(4), u64(0), u64(0))
		step = Accrue(liquidity, step.Snapshot0, step.Snapshot1, q128(10), q128(10), step.Owed0, step.Owed1)

		whole := Accrue(liquidity, q128(0), q128(0), q128(10), q128(10), u64(0), u64(0))

		assert.Equal(t, whole.Owed0, step.Owed0)
		assert.Equal(t, whole.Owed1, step.Owed1)
	})

	t.Run("SaturationIsSticky", func(t *testing.T) {
		out := Accrue(Q128, q128(0), q128(0), q128(2), q128(0), MaxUint128, u64(0))
		assert.True(t, out.Saturated)
		assert.Equal(t, MaxUint128, out.Owed0)
		assert.Equal(t, u64(0), out.Owed1)
	})
}

func TestLiquidityDelta(t *testing.T) {

	t.Run("Add", func(t *testing.T) {
		var dest uint256.Int
		require.NoError(t, AddLiquidity(&dest, u64(100), u64(50)))
		assert.Equal(t, u64(150), &dest)
	})

	t.Run("AddOverflow", func(t *testing.T) {
		var dest uint256.Int
		err := AddLiquidity(&dest, MaxUint128, u64(1))
		assert.ErrorIs(t, err, ErrLiquidityOverflow)
	})

	t.Run("Sub", func(t *testing.T) {
		var dest uint256.Int
		require.NoError(t, SubLiquidity(&dest, u64(100), u64(100)))
		assert.True(t, dest.IsZero())
	})

	t.Run("SubUnderflow", func(t *testing.T) {
		var dest uint256.Int
		err := SubLiquidity(&dest, u64(100), u64(101))
		assert.ErrorIs(t, err, ErrLiquidityUnderflow)
	})
}

func TestFormat(t *testing.T) {

	t.Run("Q128ToDecimal", func(t *testing.T) {
		half := new(uint256.Int).Rsh(Q128, 1)
		assert.Equal(t, "0.5", Q128ToDecimal(half, 6).String())
		assert.Equal(t, "3", Q128ToDecimal(q128(3), 6).String())
	})

	t.Run("AmountToDecimal", func(t *testing.T) {
		assert.Equal(t, "1.5", AmountToDecimal(u64(1500000), 6).String())
		assert.Equal(t, "42", AmountToDecimal(u64(42), 0).String())
	})
}
