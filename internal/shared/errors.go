package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Message)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// ConflictError reports a duplicate unique identifier such as an invoice number.
type ConflictError struct {
	Field string
	Value string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s %q already exists", e.Field, e.Value)
}

// StockErrorKind distinguishes the two stock rule violations.
type StockErrorKind string

const (
	StockInsufficient         StockErrorKind = "INSUFFICIENT_STOCK"
	StockReturnExceedsOriginal StockErrorKind = "RETURN_EXCEEDS_ORIGINAL"
)

// StockError carries the offending product for stock rule violations.
type StockError struct {
	Kind      StockErrorKind
	ProductID int64
}

func (e StockError) Error() string {
	switch e.Kind {
	case StockReturnExceedsOriginal:
		return fmt.Sprintf("stock: returned quantity exceeds original for product %d", e.ProductID)
	default:
		return fmt.Sprintf("stock: insufficient stock for product %d", e.ProductID)
	}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}

// IsStock reports whether err is a StockError.
func IsStock(err error) bool {
	var se StockError
	return errors.As(err, &se)
}
