package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Method is the way a customer pays for an order.
type Method string

const (
	MethodCreditCard     Method = "Credit Card"
	MethodUPI            Method = "UPI"
	MethodCashOnDelivery Method = "Cash on Delivery"
	MethodUPIQR          Method = "UPI QR Payment"
	MethodRazorpay       Method = "Razorpay"
)

// Methods lists every accepted payment method.
var Methods = []Method{MethodCreditCard, MethodUPI, MethodCashOnDelivery, MethodUPIQR, MethodRazorpay}

// Valid reports whether m is an accepted payment method.
func (m Method) Valid() bool {
	switch m {
	case MethodCreditCard, MethodUPI, MethodCashOnDelivery, MethodUPIQR, MethodRazorpay:
		return true
	}
	return false
}

// RequiresVerification reports whether the client must present a gateway
// signature that is checked before the order is placed.
func (m Method) RequiresVerification() bool {
	return m == MethodRazorpay
}

// RequiresTransactionID reports whether the client must supply the
// gateway transaction reference.
func (m Method) RequiresTransactionID() bool {
	return m == MethodUPIQR || m == MethodRazorpay
}

// PreAuthorized reports whether funds are secured at checkout time.
func (m Method) PreAuthorized() bool {
	return m == MethodCreditCard || m == MethodUPIQR || m == MethodRazorpay
}

// Status is the settlement state of a payment.
type Status string

const (
	StatusPaid     Status = "Paid"
	StatusPending  Status = "Pending"
	StatusFailed   Status = "Failed"
	StatusRefunded Status = "Refunded"
)

var (
	// ErrNotFound is returned when an order has no payment record.
	ErrNotFound = errors.New("payment not found")
	// ErrDuplicatePayment is returned when a payment already exists for the
	// order or the transaction id has been used before.
	ErrDuplicatePayment = errors.New("payment already recorded")
)

// Payment is the record tied one-to-one to an order.
type Payment struct {
	ID               string
	OrderID          string
	VendorID         string
	CustomerID       string
	Amount           decimal.Decimal
	Method           Method
	TransactionID    string
	GatewayOrderID   string
	GatewaySignature string
	Status           Status
	PaidAt           time.Time
}

// Repository persists payments inside a unit of work.
//
// Create must reject a second payment for the same order or the same
// transaction id with ErrDuplicatePayment.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
	UpdateStatus(ctx context.Context, orderID string, status Status) error
}
