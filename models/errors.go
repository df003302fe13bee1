package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrOutOfStock         = errors.New("out of stock")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrVoucherInvalid     = errors.New("voucher invalid")
	ErrVoucherExpired     = errors.New("voucher expired")
	ErrOrderStateConflict = errors.New("order state conflict")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrEmptyOrder         = errors.New("order has no items")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrInvalidPayment     = errors.New("invalid payment event")
)

// OutOfStockError reports that no single warehouse can cover a line.
type OutOfStockError struct {
	VariantID uuid.UUID
	SKU       string
	Requested int
}

func (e *OutOfStockError) Error() string {
	if e.SKU != "" {
		return fmt.Sprintf("out of stock: %s (requested %d)", e.SKU, e.Requested)
	}
	return fmt.Sprintf("out of stock: variant %s (requested %d)", e.VariantID, e.Requested)
}

func (e *OutOfStockError) Unwrap() error { return ErrOutOfStock }

// InsufficientStockError carries the quantity that is still available.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available, %d requested", e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type StateConflictError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("order cannot move from %s to %s", e.From, e.To)
}

func (e *StateConflictError) Unwrap() error { return ErrOrderStateConflict }
