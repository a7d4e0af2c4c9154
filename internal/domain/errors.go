package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds every ledger operation reports. Store and service errors wrap one of these so
// the API layer can map them with errors.Is.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
)

// ErrCampoutClosed is returned for money movement against a CLOSED campout.
var ErrCampoutClosed = fmt.Errorf("%w: campout is closed and cannot accept new transactions", ErrInvalidState)

// ErrCampaignClosed is returned for money movement against a CLOSED fundraising campaign.
var ErrCampaignClosed = fmt.Errorf("%w: campaign is closed", ErrInvalidState)

// ValidationError carries field-level detail for malformed input.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidStateError describes a lifecycle violation such as publishing a campout twice.
func InvalidStateError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// InsufficientFundsError names the account holder whose balance cannot cover a debit.
func InsufficientFundsError(holder string) error {
	holder = strings.TrimSpace(holder)
	if holder == "" {
		return ErrInsufficientFunds
	}
	return fmt.Errorf("%w: %s has insufficient IBA funds", ErrInsufficientFunds, holder)
}
