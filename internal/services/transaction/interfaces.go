package transaction

import (
	"context"

	"fraudguard/internal/models"
)

// Service creates ledger transactions and reports balances.
type Service interface {
	// CreateTransaction scores, decides and records a transaction, then
	// syncs the account balance. It returns InsufficientBalanceError without
	// recording anything when an EXPENSE would breach the floor.
	CreateTransaction(ctx context.Context, req CreateRequest) (*Result, error)

	// GetBalance returns the ledger balance, healing a drifted stored value.
	GetBalance(ctx context.Context, userID uint) (*BalanceView, error)

	CreateAccount(ctx context.Context, userID uint, currency string) (*models.Account, error)
	ListTransactions(ctx context.Context, userID uint, q HistoryQuery) ([]models.Transaction, error)
}
