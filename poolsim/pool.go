// Package poolsim provides deterministic in-memory implementations of the
// coordinator's external collaborators: pool liquidity math, token
// custody, ownership/identifier minting, and a manual clock. It exists for
// tests and the console demo; nothing in the core depends on it.
package poolsim

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/defistate/position-ledger-go/bitset"
	"github.com/defistate/position-ledger-go/coordinator"
	"github.com/defistate/position-ledger-go/poolregistry"
)

var (
	// ErrZeroLiquidity is returned when the desired amounts price to no
	// liquidity at all.
	ErrZeroLiquidity = errors.New("poolsim: desired amounts yield zero liquidity")
)

type rangeKey struct {
	pool      poolregistry.PoolKey
	tickLower int32
	tickUpper int32
}

type rangeState struct {
	liquidity  *uint256.Int
	feeGrowth0 *uint256.Int
	feeGrowth1 *uint256.Int
}

// Pool is a simplified pool backend. Liquidity math is a flat 1:1 rule:
// liquidity equals min(desired0, desired1) and both tokens are taken in
// full at that amount, which keeps results exact and easy to assert
// against. Fee growth counters are advanced manually by tests via
// AdvanceFees and wrap modulo 2^256 like the real pool's counters.
type Pool struct {
	ranges map[rangeKey]*rangeState

	// One bit per tick that currently bounds a range with live liquidity,
	// offset so MinTick maps to bit 0.
	activeTicks map[poolregistry.PoolKey]bitset.BitSet
}

// NewPool creates an empty pool backend.
func NewPool() *Pool {
	return &Pool{
		ranges:      make(map[rangeKey]*rangeState),
		activeTicks: make(map[poolregistry.PoolKey]bitset.BitSet),
	}
}

var _ coordinator.PoolBackend = (*Pool)(nil)

func (p *Pool) state(key poolregistry.PoolKey, tickLower, tickUpper int32) *rangeState {
	rk := rangeKey{pool: key, tickLower: tickLower, tickUpper: tickUpper}
	st, ok := p.ranges[rk]
	if !ok {
		st = &rangeState{
			liquidity:  new(uint256.Int),
			feeGrowth0: new(uint256.Int),
			feeGrowth1: new(uint256.Int),
		}
		p.ranges[rk] = st
	}
	return st
}

func tickBit(tick int32) uint64 {
	return uint64(tick - coordinator.MinTick)
}

func (p *Pool) ticks(key poolregistry.PoolKey) bitset.BitSet {
	bs, ok := p.activeTicks[key]
	if !ok {
		bs = bitset.NewBitSet(tickBit(coordinator.MaxTick) + 1)
		p.activeTicks[key] = bs
	}
	return bs
}

// AddLiquidity implements coordinator.PoolBackend.
func (p *Pool) AddLiquidity(key poolregistry.PoolKey, tickLower, tickUpper int32, amount0Desired, amount1Desired *uint256.Int) (liquidity, amount0, amount1 *uint256.Int, err error) {
	liquidity = new(uint256.Int).Set(amount0Desired)
	if amount1Desired.Lt(liquidity) {
		liquidity.Set(amount1Desired)
	}
	if liquidity.IsZero() {
		return nil, nil, nil, ErrZeroLiquidity
	}

	st := p.state(key, tickLower, tickUpper)
	st.liquidity.Add(st.liquidity, liquidity)

	ticks := p.ticks(key)
	ticks.Set(tickBit(tickLower))
	ticks.Set(tickBit(tickUpper))

	return liquidity, new(uint256.Int).Set(liquidity), new(uint256.Int).Set(liquidity), nil
}

// RemoveLiquidity implements coordinator.PoolBackend.
func (p *Pool) RemoveLiquidity(key poolregistry.PoolKey, tickLower, tickUpper int32, liquidity *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	st := p.state(key, tickLower, tickUpper)
	if liquidity.Gt(st.liquidity) {
		return nil, nil, fmt.Errorf("poolsim: removing %s of %s range liquidity", liquidity, st.liquidity)
	}
	st.liquidity.Sub(st.liquidity, liquidity)

	if st.liquidity.IsZero() {
		ticks := p.ticks(key)
		ticks.Unset(tickBit(tickLower))
		ticks.Unset(tickBit(tickUpper))
	}

	return new(uint256.Int).Set(liquidity), new(uint256.Int).Set(liquidity), nil
}

// FeeGrowthInside implements coordinator.PoolBackend.
func (p *Pool) FeeGrowthInside(key poolregistry.PoolKey, tickLower, tickUpper int32) (feeGrowth0, feeGrowth1 *uint256.Int, err error) {
	st := p.state(key, tickLower, tickUpper)
	return new(uint256.Int).Set(st.feeGrowth0), new(uint256.Int).Set(st.feeGrowth1), nil
}

// AdvanceFees bumps the range's cumulative fee-growth counters. Addition
// wraps modulo 2^256, matching the real pool's overflow-by-design
// counters.
func (p *Pool) AdvanceFees(key poolregistry.PoolKey, tickLower, tickUpper int32, delta0, delta1 *uint256.Int) {
	st := p.state(key, tickLower, tickUpper)
	st.feeGrowth0.Add(st.feeGrowth0, delta0)
	st.feeGrowth1.Add(st.feeGrowth1, delta1)
}

// SetFeeGrowth pins the range's counters to absolute values. Useful for
// wraparound scenarios where a test wants the counter near its maximum.
func (p *Pool) SetFeeGrowth(key poolregistry.PoolKey, tickLower, tickUpper int32, feeGrowth0, feeGrowth1 *uint256.Int) {
	st := p.state(key, tickLower, tickUpper)
	st.feeGrowth0.Set(feeGrowth0)
	st.feeGrowth1.Set(feeGrowth1)
}

// RangeLiquidity reports the liquidity the sim holds for a range.
func (p *Pool) RangeLiquidity(key poolregistry.PoolKey, tickLower, tickUpper int32) *uint256.Int {
	return new(uint256.Int).Set(p.state(key, tickLower, tickUpper).liquidity)
}

// ActiveTickCount reports how many ticks currently bound ranges with live
// liquidity in the pool.
func (p *Pool) ActiveTickCount(key poolregistry.PoolKey) int {
	bs, ok := p.activeTicks[key]
	if !ok {
		return 0
	}
	return bs.Count()
}
