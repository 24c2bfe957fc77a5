package repositories

import (
	"context"
	"time"

	"fraudguard/internal/models"

	"github.com/shopspring/decimal"
)

// BalanceTotals are the COMPLETED sums that define an account balance.
type BalanceTotals struct {
	Income  decimal.Decimal
	Outflow decimal.Decimal
}

// Balance is income minus outflow.
func (t BalanceTotals) Balance() decimal.Decimal {
	return t.Income.Sub(t.Outflow)
}

// TransactionFilter selects transactions for listing. Zero values mean
// "no constraint"; results are ordered newest first.
type TransactionFilter struct {
	UserID   uint
	Since    *time.Time
	Until    *time.Time
	Statuses []models.TransactionStatus
	Limit    int
	Offset   int
}

// TransactionRepository is append-only: there is no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error

	// SumCompleted totals COMPLETED income and outflow for one user.
	SumCompleted(ctx context.Context, userID uint) (BalanceTotals, error)

	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
}
