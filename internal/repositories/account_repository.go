package repositories

import (
	"context"
	"errors"

	"fraudguard/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrDuplicateReference = errors.New("transaction reference already exists")
)

// AccountRepository defines the interface for account persistence.
// The stored balance is a cache of the ledger; only the reconciler writes it.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByUserID(ctx context.Context, userID uint) (*models.Account, error)

	// GetByUserIDForUpdate reads the account and holds a row lock until the
	// surrounding transaction ends.
	GetByUserIDForUpdate(ctx context.Context, userID uint) (*models.Account, error)

	UpdateBalance(ctx context.Context, userID uint, balance decimal.Decimal) error
}

// Store groups the repositories that must share a storage transaction.
type Store interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	Users() UserRepository

	// ExecuteInTransaction runs fn against a Store bound to a single storage
	// transaction. A non-nil error from fn rolls everything back.
	ExecuteInTransaction(ctx context.Context, fn func(Store) error) error
}
