package poolsim

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/position-ledger-go/poolregistry"
)

func simKey() poolregistry.PoolKey {
	return poolregistry.PoolKey{Fee: 500}
}

func addrOf(b byte) common.Address { return common.BytesToAddress([]byte{b}) }

func TestPool(t *testing.T) {

	t.Run("AddTakesMinOfDesired", func(t *testing.T) {
		p := NewPool()
		liq, a0, a1, err := p.AddLiquidity(simKey(), -10, 10, uint256.NewInt(700), uint256.NewInt(300))
		require.NoError(t, err)

		assert.Equal(t, uint256.NewInt(300), liq)
		assert.Equal(t, uint256.NewInt(300), a0)
		assert.Equal(t, uint256.NewInt(300), a1)
		assert.Equal(t, uint256.NewInt(300), p.RangeLiquidity(simKey(), -10, 10))
		assert.Equal(t, 2, p.ActiveTickCount(simKey()))
	})

	t.Run("AddRejectsZero", func(t *testing.T) {
		p := NewPool()
		_, _, _, err := p.AddLiquidity(simKey(), -10, 10, new(uint256.Int), uint256.NewInt(300))
		assert.ErrorIs(t, err, ErrZeroLiquidity)
	})

	t.Run("RemoveReleasesBothSides", func(t *testing.T) {
		p := NewPool()
		_, _, _, err := p.AddLiquidity(simKey(), -10, 10, uint256.NewInt(500), uint256.NewInt(500))
		require.NoError(t, err)

		a0, a1, err := p.RemoveLiquidity(simKey(), -10, 10, uint256.NewInt(200))
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(200), a0)
		assert.Equal(t, uint256.NewInt(200), a1)
		assert.Equal(t, uint256.NewInt(300), p.RangeLiquidity(simKey(), -10, 10))
	})

	t.Run("RemoveMoreThanHeld", func(t *testing.T) {
		p := NewPool()
		_, _, err := p.RemoveLiquidity(simKey(), -10, 10, uint256.NewInt(1))
		assert.Error(t, err)
	})

	t.Run("EmptiedRangeReleasesTicks", func(t *testing.T) {
		p := NewPool()
		_, _, _, err := p.AddLiquidity(simKey(), -10, 10, uint256.NewInt(100), uint256.NewInt(100))
		require.NoError(t, err)
		_, _, err = p.RemoveLiquidity(simKey(), -10, 10, uint256.NewInt(100))
		require.NoError(t, err)

		assert.Equal(t, 0, p.ActiveTickCount(simKey()))
	})

	t.Run("FeeGrowthWrapsAtMaximum", func(t *testing.T) {
		p := NewPool()
		max := new(uint256.Int).Not(new(uint256.Int))
		p.SetFeeGrowth(simKey(), -10, 10, max, new(uint256.Int))
		p.AdvanceFees(simKey(), -10, 10, uint256.NewInt(5), uint256.NewInt(1))

		fg0, fg1, err := p.FeeGrowthInside(simKey(), -10, 10)
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(4), fg0)
		assert.Equal(t, uint256.NewInt(1), fg1)
	})

	t.Run("FeeGrowthReturnsCopies", func(t *testing.T) {
		p := NewPool()
		p.SetFeeGrowth(simKey(), -10, 10, uint256.NewInt(9), uint256.NewInt(9))

		fg0, _, err := p.FeeGrowthInside(simKey(), -10, 10)
		require.NoError(t, err)
		fg0.SetUint64(0)

		again, _, err := p.FeeGrowthInside(simKey(), -10, 10)
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(9), again)
	})
}

func TestOwnershipBook(t *testing.T) {
	book := NewOwnershipBook()

	id, err := book.Mint(addrOf(0x01))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	owner, err := book.OwnerOf(id)
	require.NoError(t, err)
	assert.Equal(t, addrOf(0x01), owner)

	_, err = book.OwnerOf(99)
	assert.Error(t, err)

	next, err := book.Mint(addrOf(0x02))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)
}
