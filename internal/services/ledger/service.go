package ledger

import (
	"context"
	"errors"
	"fmt"

	apperrors "fraudguard/internal/errors"
	"fraudguard/internal/models"
	"fraudguard/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reconciler computes, validates and syncs account balances.
type Reconciler struct {
	accounts     AccountStore
	transactions TransactionStore
	minBalance   decimal.Decimal
	logger       *zap.Logger
}

// NewReconciler creates a reconciler over the given stores.
func NewReconciler(accounts AccountStore, transactions TransactionStore, config Config, logger *zap.Logger) *Reconciler {
	if accounts == nil {
		panic("account store is required")
	}
	if transactions == nil {
		panic("transaction store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reconciler{
		accounts:     accounts,
		transactions: transactions,
		minBalance:   config.Floor(),
		logger:       logger,
	}
}

// MinBalance returns the configured floor.
func (r *Reconciler) MinBalance() decimal.Decimal {
	return r.minBalance
}

// ComputeBalance derives the balance from COMPLETED transactions. It does
// not write anything.
func (r *Reconciler) ComputeBalance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	if _, err := r.account(ctx, userID); err != nil {
		return decimal.Zero, err
	}
	return r.sum(ctx, userID)
}

// Sync writes the computed balance to the account and returns it.
func (r *Reconciler) Sync(ctx context.Context, userID uint) (decimal.Decimal, error) {
	account, err := r.account(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	balance, err := r.sum(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	if account.Balance.Equal(balance) {
		return balance, nil
	}
	if err := r.write(ctx, userID, balance); err != nil {
		return decimal.Zero, err
	}

	r.logger.Debug("balance synced",
		zap.Uint("user_id", userID),
		zap.String("previous", account.Balance.StringFixed(BalancePlaces)),
		zap.String("balance", balance.StringFixed(BalancePlaces)))
	return balance, nil
}

// ValidateDebit checks that debiting amount keeps the account at or above
// the minimum balance. It returns *errors.InsufficientBalanceError when it
// would not. Which transaction types are checked is the caller's decision.
func (r *Reconciler) ValidateDebit(ctx context.Context, userID uint, amount decimal.Decimal) (*DebitCheck, error) {
	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "must be greater than zero")
	}

	current, err := r.ComputeBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	projected := current.Sub(amount)
	if projected.LessThan(r.minBalance) {
		return nil, &apperrors.InsufficientBalanceError{
			Current:    current,
			Projected:  projected,
			MinBalance: r.minBalance,
		}
	}

	return &DebitCheck{Current: current, Projected: projected}, nil
}

// Reconcile compares the stored balance with the ledger and syncs when they
// have drifted apart.
func (r *Reconciler) Reconcile(ctx context.Context, userID uint) (*ReconcileResult, error) {
	account, err := r.account(ctx, userID)
	if err != nil {
		return nil, err
	}

	computed, err := r.sum(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{
		Balance:  computed,
		Stored:   account.Balance,
		IsSynced: true,
	}
	if account.Balance.Sub(computed).Abs().LessThan(SyncEpsilon) {
		return result, nil
	}

	r.logger.Warn("stored balance drifted from ledger",
		zap.Uint("user_id", userID),
		zap.String("stored", account.Balance.StringFixed(BalancePlaces)),
		zap.String("computed", computed.StringFixed(BalancePlaces)))

	if err := r.write(ctx, userID, computed); err != nil {
		return nil, err
	}
	result.IsSynced = false
	return result, nil
}

func (r *Reconciler) account(ctx context.Context, userID uint) (*models.Account, error) {
	account, err := r.accounts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: user %d", apperrors.ErrAccountNotFound, userID)
		}
		return nil, apperrors.NewPersistenceError("load account", err)
	}
	return account, nil
}

func (r *Reconciler) sum(ctx context.Context, userID uint) (decimal.Decimal, error) {
	totals, err := r.transactions.SumCompleted(ctx, userID)
	if err != nil {
		return decimal.Zero, apperrors.NewPersistenceError("sum transactions", err)
	}
	return totals.Balance().Round(BalancePlaces), nil
}

func (r *Reconciler) write(ctx context.Context, userID uint, balance decimal.Decimal) error {
	if err := r.accounts.UpdateBalance(ctx, userID, balance); err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return fmt.Errorf("%w: user %d", apperrors.ErrAccountNotFound, userID)
		}
		return apperrors.NewPersistenceError("update balance", err)
	}
	return nil
}
