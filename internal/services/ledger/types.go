package ledger

import "github.com/shopspring/decimal"

// Config holds the balance policy. A nil MinBalance selects
// DefaultMinBalance; any set value, zero included, is used as given.
type Config struct {
	MinBalance *decimal.Decimal
}

// Floor returns the effective minimum balance.
func (c Config) Floor() decimal.Decimal {
	if c.MinBalance == nil {
		return DefaultMinBalance
	}
	return *c.MinBalance
}

// WithMinBalance returns a Config pinned to the given floor.
func WithMinBalance(floor decimal.Decimal) Config {
	return Config{MinBalance: &floor}
}

// DebitCheck is the outcome of a passing ValidateDebit.
type DebitCheck struct {
	Current   decimal.Decimal
	Projected decimal.Decimal
}

// ReconcileResult reports the balance after reconciliation. IsSynced is true
// when the stored balance already matched the ledger.
type ReconcileResult struct {
	Balance  decimal.Decimal
	Stored   decimal.Decimal
	IsSynced bool
}
