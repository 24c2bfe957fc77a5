package ledger

import "github.com/shopspring/decimal"

// DefaultMinBalance is the floor an EXPENSE may not take an account below.
var DefaultMinBalance = decimal.NewFromInt(200000)

// SyncEpsilon is the divergence between stored and computed balances that
// triggers a resync. Balances are stored to the cent, so any one-cent drift
// exceeds it.
var SyncEpsilon = decimal.RequireFromString("0.005")

// BalancePlaces is the scale balances are rounded to.
const BalancePlaces = 2
