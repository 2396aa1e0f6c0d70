package coordinator

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/defistate/position-ledger-go/poolregistry"
)

// Tick bounds of the pool's valid tick space.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PoolBackend is the external pool's liquidity math. Calls are synchronous
// total functions: they return a result or an error, never block the
// ledger, and perform whatever token movement the operation implies on the
// pool side.
type PoolBackend interface {
	// AddLiquidity converts desired token amounts into liquidity for the
	// range and returns the actual amounts taken.
	AddLiquidity(key poolregistry.PoolKey, tickLower, tickUpper int32, amount0Desired, amount1Desired *uint256.Int) (liquidity, amount0, amount1 *uint256.Int, err error)
	// RemoveLiquidity burns liquidity from the range and returns the token
	// amounts released. The amounts are credited to the position, not
	// transferred.
	RemoveLiquidity(key poolregistry.PoolKey, tickLower, tickUpper int32, liquidity *uint256.Int) (amount0, amount1 *uint256.Int, err error)
	// FeeGrowthInside returns the pool's current cumulative
	// per-unit-liquidity fee growth for the range, Q128.128, wrap-capable.
	FeeGrowthInside(key poolregistry.PoolKey, tickLower, tickUpper int32) (feeGrowth0, feeGrowth1 *uint256.Int, err error)
}

// TokenCustody moves tokens out of custody. Used only by Collect.
type TokenCustody interface {
	Transfer(token common.Address, recipient common.Address, amount *uint256.Int) error
}

// IdentifierMinter allocates a fresh, never-reused position identifier,
// recording the recipient as its initial owner.
type IdentifierMinter interface {
	Mint(recipient common.Address) (uint64, error)
}

// Clock supplies the current time for deadline comparisons, as Unix seconds.
type Clock interface {
	Now() uint64
}

// MintParams are the inputs to Mint.
type MintParams struct {
	PoolKey        poolregistry.PoolKey
	TickLower      int32
	TickUpper      int32
	Amount0Desired *uint256.Int
	Amount1Desired *uint256.Int
	Amount0Min     *uint256.Int
	Amount1Min     *uint256.Int
	Recipient      common.Address
	Deadline       uint64
}

// MintResult reports the created position.
type MintResult struct {
	PositionID uint64
	Liquidity  *uint256.Int
	Amount0    *uint256.Int
	Amount1    *uint256.Int
}

// IncreaseParams are the inputs to IncreaseLiquidity.
type IncreaseParams struct {
	PositionID     uint64
	Amount0Desired *uint256.Int
	Amount1Desired *uint256.Int
	Amount0Min     *uint256.Int
	Amount1Min     *uint256.Int
	Deadline       uint64
}

// IncreaseResult reports the added liquidity and the amounts taken.
type IncreaseResult struct {
	Liquidity *uint256.Int
	Amount0   *uint256.Int
	Amount1   *uint256.Int
}

// DecreaseParams are the inputs to DecreaseLiquidity.
type DecreaseParams struct {
	PositionID uint64
	Liquidity  *uint256.Int
	Amount0Min *uint256.Int
	Amount1Min *uint256.Int
	Deadline   uint64
}

// DecreaseResult reports the amounts released into the position's owed
// balances.
type DecreaseResult struct {
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}

// PermitParams are the inputs to ApproveOperator: a one-time signed
// delegation from the position's owner.
type PermitParams struct {
	PositionID uint64
	Operator   common.Address
	Deadline   uint64
	Signature  []byte
}

// CollectParams are the inputs to Collect.
type CollectParams struct {
	PositionID uint64
	Recipient  common.Address
	Amount0Max *uint256.Int
	Amount1Max *uint256.Int
}

// CollectResult reports the amounts actually paid out.
type CollectResult struct {
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}
