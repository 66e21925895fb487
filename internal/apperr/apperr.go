// Package apperr defines the error kinds returned by the ledger services.
// Callers branch on kind with errors.As; the HTTP layer maps each kind to a status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError is returned before any write when an input is malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced row that does not exist.
type NotFoundError struct {
	Entity string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Key)
}

// NotFound builds a NotFoundError.
func NotFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// InsufficientStockError is returned when a cart line asks for more units than are on hand.
type InsufficientStockError struct {
	ProductID uint
	Product   string
	Requested int
	Available int
}

// Shortfall is the number of units missing to satisfy the request.
func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: need %d, have %d (short by %d)",
		e.Product, e.Requested, e.Available, e.Shortfall())
}

// StorageError wraps an underlying persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError unless it already carries a kind.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != "" {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Kind returns a short name for the error kind, or "" for untyped errors.
func Kind(err error) string {
	var (
		ve *ValidationError
		ne *NotFoundError
		ie *InsufficientStockError
		se *StorageError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ne):
		return "not_found"
	case errors.As(err, &ie):
		return "insufficient_stock"
	case errors.As(err, &se):
		return "storage"
	}
	return ""
}

// HTTPStatus maps an error kind to the response status.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case "validation":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "insufficient_stock":
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
