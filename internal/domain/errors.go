package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingWarehouse       = errors.New("warehouse is required")
	ErrMissingDate            = errors.New("delivery date is required")
	ErrInvalidDate            = errors.New("invalid date")
	ErrEmptySelection         = errors.New("no product selected with quantity greater than zero")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrProductNotFound        = errors.New("product not found")
	ErrPurchaseNotFound       = errors.New("purchase not found")
	ErrDeliveryNotFound       = errors.New("delivery not found")
	ErrExpenseNotFound        = errors.New("expense not found")
	ErrPurchaseNotDeliverable = errors.New("purchase does not accept deliveries in its current status")
)

// InsufficientStockError carries the amounts involved in a rejected deduction.
type InsufficientStockError struct {
	ProductID string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %s, requested %s", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
