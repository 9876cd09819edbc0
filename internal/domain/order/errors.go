package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidTransition is matched by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDeliveryCodeRequired is returned when Delivered is requested without
	// the delivery confirmation code.
	ErrDeliveryCodeRequired = errors.New("delivery requires the confirmation code")
	// ErrInvalidDeliveryCode is returned when the presented code does not
	// match the order's code.
	ErrInvalidDeliveryCode = errors.New("invalid delivery code")
)

// ValidationError reports malformed or missing input. It is raised before
// any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// StoreNotFoundError indicates the store of the cart is missing or inactive.
type StoreNotFoundError struct {
	StoreID string
}

func (e *StoreNotFoundError) Error() string {
	return fmt.Sprintf("store %s not found or inactive", e.StoreID)
}

// MultiStoreCartError indicates the cart holds products of several stores.
type MultiStoreCartError struct {
	StoreID      string
	ProductID    string
	OtherStoreID string
}

func (e *MultiStoreCartError) Error() string {
	return "cannot place order with products from multiple stores"
}

// ServiceAreaMismatchError indicates the store does not deliver to the
// shipping pin code.
type ServiceAreaMismatchError struct {
	ShippingPinCode string
	StorePinCode    string
}

func (e *ServiceAreaMismatchError) Error() string {
	return fmt.Sprintf("store is not available in pincode %s, it serves pincode %s",
		e.ShippingPinCode, e.StorePinCode)
}

// TransitionError reports a status change the state machine forbids.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

// Is makes errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// TransactionAbortedError wraps an unexpected fault inside the unit of work.
// The cause is logged and never shown to clients.
type TransactionAbortedError struct {
	Cause error
}

func (e *TransactionAbortedError) Error() string {
	return "order placement failed due to a transaction error"
}

func (e *TransactionAbortedError) Unwrap() error {
	return e.Cause
}
