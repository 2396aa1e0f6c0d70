package feemath

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var q128Decimal = decimal.NewFromBigInt(Q128.ToBig(), 0)

// Q128ToDecimal converts a Q128.128 fixed-point value into a decimal with
// the given number of fractional places, rounding half up. Intended for
// display and reporting only; ledger arithmetic never goes through
// decimals.
func Q128ToDecimal(x *uint256.Int, places int32) decimal.Decimal {
	return decimal.NewFromBigInt(x.ToBig(), 0).DivRound(q128Decimal, places)
}

// AmountToDecimal scales a raw token amount by the token's decimals for
// display, e.g. 1500000 with 6 decimals renders as 1.5.
func AmountToDecimal(amount *uint256.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(amount.ToBig(), -decimals)
}
