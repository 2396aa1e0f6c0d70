package poolsim

import "github.com/defistate/position-ledger-go/coordinator"

// Clock is a manually advanced clock collaborator.
type Clock struct {
	now uint64
}

// NewClock creates a clock pinned at now (Unix seconds).
func NewClock(now uint64) *Clock {
	return &Clock{now: now}
}

var _ coordinator.Clock = (*Clock)(nil)

// Now implements coordinator.Clock.
func (c *Clock) Now() uint64 { return c.now }

// Advance moves the clock forward by seconds.
func (c *Clock) Advance(seconds uint64) { c.now += seconds }

// Set pins the clock to an absolute time.
func (c *Clock) Set(now uint64) { c.now = now }
