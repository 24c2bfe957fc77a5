package ledger

import (
	"context"

	"fraudguard/internal/models"
	"fraudguard/internal/repositories"

	"github.com/shopspring/decimal"
)

// AccountStore is the account access the reconciler needs.
type AccountStore interface {
	GetByUserID(ctx context.Context, userID uint) (*models.Account, error)
	UpdateBalance(ctx context.Context, userID uint, balance decimal.Decimal) error
}

// TransactionStore is the ledger read the reconciler needs.
type TransactionStore interface {
	SumCompleted(ctx context.Context, userID uint) (repositories.BalanceTotals, error)
}
