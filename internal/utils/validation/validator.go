// Package validation collects field errors from request parsing.
package validation

import (
	apperrors "fraudguard/internal/errors"
)

type Validator struct {
	Errors []*apperrors.ValidationError
}

func New() *Validator {
	return &Validator{
		Errors: make([]*apperrors.ValidationError, 0),
	}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

func (v *Validator) AddError(field, message string) {
	v.Errors = append(v.Errors, &apperrors.ValidationError{
		Field:   field,
		Message: message,
	})
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Err returns the first recorded error, or nil.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return v.Errors[0]
}
