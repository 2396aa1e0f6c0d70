package poolsim

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/defistate/position-ledger-go/coordinator"
)

// Custody is an in-memory token custody collaborator. It only records
// outbound transfers; the sim does not model deposits.
type Custody struct {
	balances map[common.Address]map[common.Address]*uint256.Int
}

// NewCustody creates an empty custody ledger.
func NewCustody() *Custody {
	return &Custody{
		balances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

var _ coordinator.TokenCustody = (*Custody)(nil)

// Transfer implements coordinator.TokenCustody.
func (c *Custody) Transfer(token, recipient common.Address, amount *uint256.Int) error {
	holders, ok := c.balances[token]
	if !ok {
		holders = make(map[common.Address]*uint256.Int)
		c.balances[token] = holders
	}
	balance, ok := holders[recipient]
	if !ok {
		balance = new(uint256.Int)
		holders[recipient] = balance
	}
	balance.Add(balance, amount)
	return nil
}

// Balance reports the total amount transferred to recipient in token.
func (c *Custody) Balance(token, recipient common.Address) *uint256.Int {
	if balance, ok := c.balances[token][recipient]; ok {
		return new(uint256.Int).Set(balance)
	}
	return new(uint256.Int)
}
