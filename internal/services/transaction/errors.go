package transaction

import (
	"errors"

	apperrors "fraudguard/internal/errors"
)

// normalizeError passes domain errors through and wraps anything else as a
// retryable persistence failure.
func normalizeError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pe *apperrors.PersistenceError
	switch {
	case errors.As(err, &pe),
		errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInsufficientBalance),
		errors.Is(err, apperrors.ErrAccountNotFound),
		errors.Is(err, apperrors.ErrAccountExists),
		errors.Is(err, apperrors.ErrUserNotFound):
		return err
	}
	return apperrors.NewPersistenceError(op, err)
}

// errorKind is a low-cardinality label for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	case errors.Is(err, apperrors.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, apperrors.ErrAccountNotFound):
		return "account_not_found"
	case apperrors.IsRetryable(err):
		return "persistence"
	default:
		return "other"
	}
}
