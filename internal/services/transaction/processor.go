package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "fraudguard/internal/errors"
	"fraudguard/internal/models"
	"fraudguard/internal/repositories"
	"fraudguard/internal/services/ledger"
	"fraudguard/internal/services/risk"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func validateRequest(req CreateRequest) error {
	if req.UserID == 0 {
		return apperrors.NewValidationError("user_id", "is required")
	}
	if !req.Amount.IsPositive() {
		return apperrors.NewValidationError("amount", "must be greater than zero")
	}
	if !req.Amount.Equal(req.Amount.Round(AmountPlaces)) {
		return apperrors.NewValidationError("amount", fmt.Sprintf("must have at most %d decimal places", AmountPlaces))
	}
	if !req.Type.Valid() {
		return apperrors.NewValidationError("type", "must be one of INCOME, EXPENSE, TRANSFER")
	}
	if strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("description", "is required")
	}
	if utf8.RuneCountInString(req.Description) > MaxDescriptionLength {
		return apperrors.NewValidationError("description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLength))
	}
	return nil
}

// processor is the critical section of CreateTransaction. It runs inside a
// storage transaction while the account lock is held.
type processor struct {
	engine *risk.Engine
	config ledger.Config
	svc    *service
}

type processed struct {
	tx       *models.Transaction
	decision risk.Decision
	balance  decimal.Decimal
}

func (p *processor) process(ctx context.Context, store repositories.Store, req CreateRequest, score risk.Score, reason string) (*processed, error) {
	if _, err := store.Accounts().GetByUserIDForUpdate(ctx, req.UserID); err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: user %d", apperrors.ErrAccountNotFound, req.UserID)
		}
		return nil, apperrors.NewPersistenceError("lock account", err)
	}

	rec := ledger.NewReconciler(store.Accounts(), store.Transactions(), p.config, p.svc.logger)

	decision, err := p.engine.Evaluate(ctx, req.Type, score, func(ctx context.Context) error {
		_, err := rec.ValidateDebit(ctx, req.UserID, req.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	if reason != "" {
		decision.Reason = reason
	}

	metadata := models.JSON{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata[MetadataRiskReason] = decision.Reason

	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = p.svc.now()
	}

	tx := &models.Transaction{
		Reference:   p.svc.newReference(),
		UserID:      req.UserID,
		Amount:      req.Amount,
		Type:        req.Type,
		Status:      decision.Disposition.Status(),
		RiskScore:   score.Ptr(),
		Description: strings.TrimSpace(req.Description),
		Metadata:    metadata,
		Timestamp:   timestamp,
	}
	if err := store.Transactions().Create(ctx, tx); err != nil {
		return nil, apperrors.NewPersistenceError("insert transaction", err)
	}

	balance, err := rec.Sync(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	return &processed{tx: tx, decision: decision, balance: balance}, nil
}

func newReference() string {
	return uuid.NewString()
}
