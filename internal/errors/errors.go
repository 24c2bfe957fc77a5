// Package errors defines the error taxonomy shared by the decision core and
// its HTTP adapter.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DomainError is a coded, caller-facing error.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// ValidationError reports a malformed input field. Not retryable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientBalanceError is returned when an EXPENSE debit would take the
// account below the minimum balance floor. Not retryable.
type InsufficientBalanceError struct {
	Current    decimal.Decimal
	Projected  decimal.Decimal
	MinBalance decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: current %s, projected %s, minimum %s",
		e.Current.StringFixed(2), e.Projected.StringFixed(2), e.MinBalance.StringFixed(2))
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// PersistenceError wraps a storage failure. Callers may retry the same
// idempotent operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Retryable is always true for storage failures.
func (e *PersistenceError) Retryable() bool {
	return true
}

// NewPersistenceError wraps err, or returns nil when err is nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsRetryable reports whether err carries a retryable failure.
func IsRetryable(err error) bool {
	var pe *PersistenceError
	return stderrors.As(err, &pe) && pe.Retryable()
}
