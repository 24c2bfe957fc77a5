package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a money movement for balance derivation.
type TransactionType string

// Transaction types
const (
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// IsOutflow reports whether t reduces the owner's balance.
func (t TransactionType) IsOutflow() bool {
	return t == TransactionTypeExpense || t == TransactionTypeTransfer
}

// TransactionStatus is the disposition assigned at creation. It does not
// change afterwards.
type TransactionStatus string

// Transaction statuses
const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

// Valid reports whether s is one of the known statuses.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Transaction is an append-only ledger record owned by a single user.
type Transaction struct {
	ID          uint              `gorm:"primarykey" json:"id"`
	Reference   string            `gorm:"uniqueIndex;not null" json:"reference"`
	UserID      uint              `gorm:"index:idx_transactions_user_status;not null" json:"user_id"`
	Amount      decimal.Decimal   `gorm:"type:numeric(20,2);not null" json:"amount"`
	Type        TransactionType   `gorm:"type:varchar(16);not null" json:"type"`
	Status      TransactionStatus `gorm:"type:varchar(16);index:idx_transactions_user_status;not null" json:"status"`
	RiskScore   *float64          `json:"risk_score"`
	Description string            `gorm:"size:255" json:"description"`
	Metadata    JSON              `gorm:"type:jsonb" json:"metadata,omitempty"`
	Timestamp   time.Time         `gorm:"index;not null" json:"timestamp"`
	CreatedAt   time.Time         `json:"created_at"`
}

// RiskScoreOrZero is used only by read-side aggregation where a missing
// score counts as zero.
func (t *Transaction) RiskScoreOrZero() float64 {
	if t.RiskScore == nil {
		return 0
	}
	return *t.RiskScore
}
