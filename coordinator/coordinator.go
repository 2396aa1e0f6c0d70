package coordinator

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/position-ledger-go/auth"
	"github.com/defistate/position-ledger-go/feemath"
	"github.com/defistate/position-ledger-go/ledger"
	"github.com/defistate/position-ledger-go/poolregistry"
)

var (
	// ErrExpired is returned when an operation's deadline has passed.
	ErrExpired = errors.New("transaction deadline expired")
	// ErrSlippageExceeded is returned when the pool delivered less than the
	// caller's minimum amounts.
	ErrSlippageExceeded = errors.New("amount below minimum")
	// ErrInvalidRange is returned for tick ranges outside the pool's valid
	// tick space or with tickLower >= tickUpper.
	ErrInvalidRange = errors.New("invalid tick range")
)

// Config holds the coordinator's collaborators and dependencies.
type Config struct {
	Pool    PoolBackend
	Custody TokenCustody
	Minter  IdentifierMinter
	Clock   Clock
	Guard   *auth.Guard
	Ledger  *ledger.PositionLedger
	Pools   *poolregistry.PoolRegistry
	Logger  Logger
	// Registry receives the coordinator's prometheus metrics.
	Registry prometheus.Registerer
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Pool == nil {
		return errors.New("config: Pool is required")
	}
	if c.Custody == nil {
		return errors.New("config: Custody is required")
	}
	if c.Minter == nil {
		return errors.New("config: Minter is required")
	}
	if c.Clock == nil {
		return errors.New("config: Clock is required")
	}
	if c.Guard == nil {
		return errors.New("config: Guard is required")
	}
	if c.Ledger == nil {
		return errors.New("config: Ledger is required")
	}
	if c.Pools == nil {
		return errors.New("config: Pools is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	return nil
}

// Coordinator validates and sequences position operations. It delegates
// liquidity math and token movement to the external pool and custody
// collaborators, refreshes fee accounting through feemath, and commits
// results to the position ledger. Each operation is all-or-nothing: ledger
// state is only written after every collaborator call succeeded.
type Coordinator struct {
	pool    PoolBackend
	custody TokenCustody
	minter  IdentifierMinter
	clock   Clock
	guard   *auth.Guard
	ledger  *ledger.PositionLedger
	pools   *poolregistry.PoolRegistry
	logger  Logger
	metrics *Metrics
}

// New constructs a coordinator from a configuration.
func New(cfg *Config) (*Coordinator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Coordinator{
		pool:    cfg.Pool,
		custody: cfg.Custody,
		minter:  cfg.Minter,
		clock:   cfg.Clock,
		guard:   cfg.Guard,
		ledger:  cfg.Ledger,
		pools:   cfg.Pools,
		logger:  cfg.Logger,
		metrics: NewMetrics(cfg.Registry),
	}, nil
}

// --- Validation Helpers ---

func (c *Coordinator) checkDeadline(deadline uint64) error {
	if now := c.clock.Now(); now > deadline {
		return fmt.Errorf("%w: now %d, deadline %d", ErrExpired, now, deadline)
	}
	return nil
}

func checkRange(tickLower, tickUpper int32) error {
	if tickLower >= tickUpper {
		return fmt.Errorf("%w: tickLower %d >= tickUpper %d", ErrInvalidRange, tickLower, tickUpper)
	}
	if tickLower < MinTick || tickUpper > MaxTick {
		return fmt.Errorf("%w: [%d, %d] outside [%d, %d]", ErrInvalidRange, tickLower, tickUpper, MinTick, MaxTick)
	}
	return nil
}

func checkSlippage(amount0, amount0Min, amount1, amount1Min *uint256.Int) error {
	if amount0.Lt(orZero(amount0Min)) || amount1.Lt(orZero(amount1Min)) {
		return fmt.Errorf("%w: got (%s, %s), min (%s, %s)",
			ErrSlippageExceeded, amount0, amount1, orZero(amount0Min), orZero(amount1Min))
	}
	return nil
}

func orZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return x
}

// refresh queries the pool's current growth counters for the position's
// range and folds them into the position's accounting.
func (c *Coordinator) refresh(key poolregistry.PoolKey, pos *ledger.Position) (feemath.Accrual, error) {
	fg0, fg1, err := c.pool.FeeGrowthInside(key, pos.TickLower, pos.TickUpper)
	if err != nil {
		return feemath.Accrual{}, fmt.Errorf("fee growth query: %w", err)
	}

	acc := feemath.Accrue(
		pos.Liquidity,
		pos.FeeGrowthInside0Last, pos.FeeGrowthInside1Last,
		fg0, fg1,
		pos.TokensOwed0, pos.TokensOwed1,
	)
	if acc.Saturated {
		c.metrics.saturation.Inc()
		c.logger.Warn("owed tokens saturated at maximum", "pool", pos.PoolID)
	}
	return acc, nil
}

// --- Operations ---

// Mint creates a new position: it prices the desired amounts through the
// pool, registers the pool key if needed, mints a fresh identifier for the
// recipient, and records the position with snapshots taken at mint time so
// nothing accrued before creation is ever credited.
func (c *Coordinator) Mint(p MintParams) (res *MintResult, err error) {
	timer := prometheus.NewTimer(c.metrics.duration.WithLabelValues("mint"))
	defer timer.ObserveDuration()
	defer func() { c.metrics.observe("mint", err) }()

	if err = c.checkDeadline(p.Deadline); err != nil {
		return nil, err
	}
	if err = checkRange(p.TickLower, p.TickUpper); err != nil {
		return nil, err
	}
	if err = p.PoolKey.Validate(); err != nil {
		return nil, err
	}

	liquidity, amount0, amount1, err := c.pool.AddLiquidity(
		p.PoolKey, p.TickLower, p.TickUpper, orZero(p.Amount0Desired), orZero(p.Amount1Desired))
	if err != nil {
		return nil, fmt.Errorf("add liquidity: %w", err)
	}
	if err = checkSlippage(amount0, p.Amount0Min, amount1, p.Amount1Min); err != nil {
		return nil, err
	}

	fg0, fg1, err := c.pool.FeeGrowthInside(p.PoolKey, p.TickLower, p.TickUpper)
	if err != nil {
		return nil, fmt.Errorf("fee growth query: %w", err)
	}

	poolID, err := c.pools.Resolve(p.PoolKey)
	if err != nil {
		return nil, err
	}

	id, err := c.minter.Mint(p.Recipient)
	if err != nil {
		return nil, fmt.Errorf("mint identifier: %w", err)
	}

	if err = c.ledger.Create(id, ledger.Position{
		PoolID:               poolID,
		TickLower:            p.TickLower,
		TickUpper:            p.TickUpper,
		Liquidity:            liquidity,
		FeeGrowthInside0Last: fg0,
		FeeGrowthInside1Last: fg1,
		TokensOwed0:          new(uint256.Int),
		TokensOwed1:          new(uint256.Int),
	}); err != nil {
		return nil, err
	}

	c.logger.Info("position minted",
		"position", id, "pool", poolID, "liquidity", liquidity.String(),
		"amount0", amount0.String(), "amount1", amount1.String())

	return &MintResult{
		PositionID: id,
		Liquidity:  liquidity,
		Amount0:    amount0,
		Amount1:    amount1,
	}, nil
}

// IncreaseLiquidity adds liquidity to an existing position. Fees are
// checkpointed at the old liquidity before it changes, so growth accrued
// while the smaller liquidity was in effect is weighted correctly.
func (c *Coordinator) IncreaseLiquidity(caller common.Address, p IncreaseParams) (res *IncreaseResult, err error) {
	timer := prometheus.NewTimer(c.metrics.duration.WithLabelValues("increase"))
	defer timer.ObserveDuration()
	defer func() { c.metrics.observe("increase", err) }()

	if err = c.checkDeadline(p.Deadline); err != nil {
		return nil, err
	}
	if err = c.guard.Authorize(caller, p.PositionID); err != nil {
		return nil, err
	}

	pos, err := c.ledger.Get(p.PositionID)
	if err != nil {
		return nil, err
	}
	key, err := c.pools.Lookup(pos.PoolID)
	if err != nil {
		return nil, err
	}

	acc, err := c.refresh(key, &pos)
	if err != nil {
		return nil, err
	}

	added, amount0, amount1, err := c.pool.AddLiquidity(
		key, pos.TickLower, pos.TickUpper, orZero(p.Amount0Desired), orZero(p.Amount1Desired))
	if err != nil {
		return nil, fmt.Errorf("add liquidity: %w", err)
	}
	if err = checkSlippage(amount0, p.Amount0Min, amount1, p.Amount1Min); err != nil {
		return nil, err
	}

	newLiquidity := new(uint256.Int)
	if err = feemath.AddLiquidity(newLiquidity, pos.Liquidity, added); err != nil {
		return nil, err
	}

	if err = c.ledger.Update(p.PositionID, func(rec *ledger.Position) error {
		rec.Liquidity.Set(newLiquidity)
		rec.FeeGrowthInside0Last.Set(acc.Snapshot0)
		rec.FeeGrowthInside1Last.Set(acc.Snapshot1)
		rec.TokensOwed0.Set(acc.Owed0)
		rec.TokensOwed1.Set(acc.Owed1)
		return nil
	}); err != nil {
		return nil, err
	}

	c.logger.Info("liquidity increased",
		"position", p.PositionID, "added", added.String(),
		"amount0", amount0.String(), "amount1", amount1.String())

	return &IncreaseResult{
		Liquidity: added,
		Amount0:   amount0,
		Amount1:   amount1,
	}, nil
}

// DecreaseLiquidity removes liquidity from a position. Fees are
// checkpointed at the old liquidity first, then the withdrawn token
// amounts are credited to the position's owed balances; collection is a
// separate step.
func (c *Coordinator) DecreaseLiquidity(caller common.Address, p DecreaseParams) (res *DecreaseResult, err error) {
	timer := prometheus.NewTimer(c.metrics.duration.WithLabelValues("decrease"))
	defer timer.ObserveDuration()
	defer func() { c.metrics.observe("decrease", err) }()

	if err = c.checkDeadline(p.Deadline); err != nil {
		return nil, err
	}
	if err = c.guard.Authorize(caller, p.PositionID); err != nil {
		return nil, err
	}

	pos, err := c.ledger.Get(p.PositionID)
	if err != nil {
		return nil, err
	}

	remove := orZero(p.Liquidity)
	if remove.Gt(pos.Liquidity) {
		return nil, fmt.Errorf("%w: removing %s of %s", feemath.ErrLiquidityUnderflow, remove, pos.Liquidity)
	}

	key, err := c.pools.Lookup(pos.PoolID)
	if err != nil {
		return nil, err
	}

	acc, err := c.refresh(key, &pos)
	if err != nil {
		return nil, err
	}

	amount0, amount1, err := c.pool.RemoveLiquidity(key, pos.TickLower, pos.TickUpper, remove)
	if err != nil {
		return nil, fmt.Errorf("remove liquidity: %w", err)
	}
	if err = checkSlippage(amount0, p.Amount0Min, amount1, p.Amount1Min); err != nil {
		return nil, err
	}

	// The withdrawn amounts join the accrued fees in tokensOwed.
	owed0, owed1 := new(uint256.Int), new(uint256.Int)
	saturated := feemath.AddOwed(owed0, acc.Owed0, amount0)
	saturated = feemath.AddOwed(owed1, acc.Owed1, amount1) || saturated
	if saturated {
		c.metrics.saturation.Inc()
		c.logger.Warn("owed tokens saturated at maximum", "position", p.PositionID)
	}

	if err = c.ledger.Update(p.PositionID, func(rec *ledger.Position) error {
		if err := feemath.SubLiquidity(rec.Liquidity, rec.Liquidity, remove); err != nil {
			return err
		}
		rec.FeeGrowthInside0Last.Set(acc.Snapshot0)
		rec.FeeGrowthInside1Last.Set(acc.Snapshot1)
		rec.TokensOwed0.Set(owed0)
		rec.TokensOwed1.Set(owed1)
		return nil
	}); err != nil {
		return nil, err
	}

	c.logger.Info("liquidity decreased",
		"position", p.PositionID, "removed", remove.String(),
		"amount0", amount0.String(), "amount1", amount1.String())

	return &DecreaseResult{Amount0: amount0, Amount1: amount1}, nil
}

// Collect pays out accrued tokens, up to the caller's maximums, to the
// recipient. If the position still has liquidity its accounting is
// refreshed first so the payout reflects the latest accrual. Collecting
// with nothing owed pays zero and leaves state unchanged.
func (c *Coordinator) Collect(caller common.Address, p CollectParams) (res *CollectResult, err error) {
	timer := prometheus.NewTimer(c.metrics.duration.WithLabelValues("collect"))
	defer timer.ObserveDuration()
	defer func() { c.metrics.observe("collect", err) }()

	if err = c.guard.Authorize(caller, p.PositionID); err != nil {
		return nil, err
	}

	pos, err := c.ledger.Get(p.PositionID)
	if err != nil {
		return nil, err
	}
	key, err := c.pools.Lookup(pos.PoolID)
	if err != nil {
		return nil, err
	}

	owed0 := new(uint256.Int).Set(pos.TokensOwed0)
	owed1 := new(uint256.Int).Set(pos.TokensOwed1)
	snap0 := new(uint256.Int).Set(pos.FeeGrowthInside0Last)
	snap1 := new(uint256.Int).Set(pos.FeeGrowthInside1Last)

	if !pos.Liquidity.IsZero() {
		acc, err := c.refresh(key, &pos)
		if err != nil {
			return nil, err
		}
		owed0.Set(acc.Owed0)
		owed1.Set(acc.Owed1)
		snap0.Set(acc.Snapshot0)
		snap1.Set(acc.Snapshot1)
	}

	paid0 := min256(owed0, orZero(p.Amount0Max))
	paid1 := min256(owed1, orZero(p.Amount1Max))

	if !paid0.IsZero() {
		if err = c.custody.Transfer(key.Token0, p.Recipient, paid0); err != nil {
			return nil, fmt.Errorf("transfer token0: %w", err)
		}
	}
	if !paid1.IsZero() {
		if err = c.custody.Transfer(key.Token1, p.Recipient, paid1); err != nil {
			return nil, fmt.Errorf("transfer token1: %w", err)
		}
	}

	if err = c.ledger.Update(p.PositionID, func(rec *ledger.Position) error {
		rec.FeeGrowthInside0Last.Set(snap0)
		rec.FeeGrowthInside1Last.Set(snap1)
		rec.TokensOwed0.Sub(owed0, paid0)
		rec.TokensOwed1.Sub(owed1, paid1)
		return nil
	}); err != nil {
		return nil, err
	}

	c.logger.Info("fees collected",
		"position", p.PositionID, "recipient", p.Recipient,
		"amount0", paid0.String(), "amount1", paid1.String())

	return &CollectResult{Amount0: paid0, Amount1: paid1}, nil
}

// ApproveOperator installs an operator on the position from a one-time
// signed permit by the owner. The signature covers the position's current
// nonce, which is consumed on success, so a permit can never be replayed.
func (c *Coordinator) ApproveOperator(p PermitParams) (err error) {
	timer := prometheus.NewTimer(c.metrics.duration.WithLabelValues("permit"))
	defer timer.ObserveDuration()
	defer func() { c.metrics.observe("permit", err) }()

	if err = c.checkDeadline(p.Deadline); err != nil {
		return err
	}
	if err = c.guard.VerifyPermit(p.PositionID, p.Operator, p.Deadline, p.Signature); err != nil {
		return err
	}

	if err = c.ledger.Update(p.PositionID, func(rec *ledger.Position) error {
		rec.Operator = p.Operator
		return nil
	}); err != nil {
		return err
	}

	c.logger.Info("operator approved", "position", p.PositionID, "operator", p.Operator)
	return nil
}

// Burn destroys an empty position. It fails with ledger.ErrNotEmpty while
// any liquidity or owed tokens remain; the identifier is retired forever.
func (c *Coordinator) Burn(caller common.Address, positionID uint64) (err error) {
	timer := prometheus.NewTimer(c.metrics.duration.WithLabelValues("burn"))
	defer timer.ObserveDuration()
	defer func() { c.metrics.observe("burn", err) }()

	if err = c.guard.Authorize(caller, positionID); err != nil {
		return err
	}
	if err = c.ledger.Remove(positionID); err != nil {
		return err
	}

	c.logger.Info("position burned", "position", positionID)
	return nil
}

// --- Read-Only Accessors ---

// GetPosition returns a copy of the position record.
func (c *Coordinator) GetPosition(positionID uint64) (ledger.Position, error) {
	return c.ledger.Get(positionID)
}

// GetPoolKey returns the pool key registered under a compact id.
func (c *Coordinator) GetPoolKey(poolID uint64) (poolregistry.PoolKey, error) {
	return c.pools.Lookup(poolID)
}

func min256(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}
