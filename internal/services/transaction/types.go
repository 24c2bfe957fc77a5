package transaction

import (
	"time"

	"fraudguard/internal/models"
	"fraudguard/internal/services/risk"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

// CreateRequest is a transaction submitted by an account owner.
type CreateRequest struct {
	UserID      uint
	Amount      decimal.Decimal
	Type        models.TransactionType
	Description string
	Metadata    models.JSON

	// Timestamp defaults to the processing time.
	Timestamp time.Time
}

// Result is the recorded transaction and the decision behind its status.
type Result struct {
	Transaction *models.Transaction `json:"transaction"`
	Disposition risk.Disposition    `json:"disposition"`
	Reason      string              `json:"reason"`
	Balance     decimal.Decimal     `json:"balance"`
}

// BalanceView is the balance reported to an account owner.
type BalanceView struct {
	UserID   uint            `json:"user_id"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
	IsSynced bool            `json:"is_synced"`
}

// HistoryQuery pages an owner's transactions, newest first. An empty
// Statuses matches every status.
type HistoryQuery struct {
	Limit    int
	Offset   int
	Statuses []models.TransactionStatus
}

// Config holds the ledger policy and account defaults.
type Config struct {
	// MinBalance defaults to ledger.DefaultMinBalance when nil.
	MinBalance      *decimal.Decimal
	DefaultCurrency string

	// Metrics defaults to NoopMetricsCollector.
	Metrics MetricsCollector

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}
