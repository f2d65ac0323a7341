// Package ledger defines the error taxonomy shared by every ledger-mutating package.
package ledger

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNotFound           = errors.New("not found")
	ErrUpstreamFailure    = errors.New("upstream provider failure")
	ErrSignatureInvalid   = errors.New("invalid signature")
	ErrInconsistency      = errors.New("ledger inconsistency")
	ErrDuplicateReference = errors.New("duplicate transaction reference")
	ErrUnderReview        = errors.New("transaction flagged for review")
)

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ReferenceError ties an error to the transaction it left behind, so clients
// can quote the reference to support.
type ReferenceError struct {
	Reference string
	Err       error
}

// WithReference wraps err; a nil err becomes ErrUpstreamFailure.
func WithReference(reference string, err error) error {
	if err == nil {
		err = ErrUpstreamFailure
	}
	return &ReferenceError{Reference: reference, Err: err}
}

func (e *ReferenceError) Error() string {
	return e.Reference + ": " + e.Err.Error()
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}

func (e *ReferenceError) TransactionReference() string {
	return e.Reference
}
