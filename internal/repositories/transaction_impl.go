package repositories

import (
	"context"
	"errors"
	"fmt"

	"fraudguard/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{
		db: db,
	}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) SumCompleted(ctx context.Context, userID uint) (BalanceTotals, error) {
	var row struct {
		Income  decimal.Decimal
		Outflow decimal.Decimal
	}

	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select(
			"COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS income, "+
				"COALESCE(SUM(CASE WHEN type IN ? THEN amount ELSE 0 END), 0) AS outflow",
			models.TransactionTypeIncome,
			[]models.TransactionType{models.TransactionTypeExpense, models.TransactionTypeTransfer},
		).
		Where("user_id = ? AND status = ?", userID, models.StatusCompleted).
		Scan(&row).Error
	if err != nil {
		return BalanceTotals{}, fmt.Errorf("failed to sum transactions: %w", err)
	}

	return BalanceTotals{Income: row.Income, Outflow: row.Outflow}, nil
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Since != nil {
		query = query.Where("timestamp >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("timestamp < ?", *filter.Until)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var txs []models.Transaction
	if err := query.Order("timestamp DESC, id DESC").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}
