package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charge describes the payment side of a freshly assembled order.
type Charge struct {
	OrderID    string
	VendorID   string
	CustomerID string
	Amount     decimal.Decimal
	Method     Method
	Assertion  Assertion
}

// Recorder builds and stores the payment record of an order.
type Recorder struct {
	now   func() time.Time
	newID func() string
}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// NewRecord maps a charge to a Payment. Pre-authorized methods are Paid,
// deferred ones Pending. Without a client transaction id a reference is
// synthesized from the order id.
func (r *Recorder) NewRecord(c Charge) *Payment {
	status := StatusPending
	if c.Method.PreAuthorized() {
		status = StatusPaid
	}

	txID := c.Assertion.TransactionID
	if txID == "" {
		if c.Method == MethodCashOnDelivery {
			txID = "COD-" + c.OrderID
		} else {
			txID = "INT-" + c.OrderID
		}
	}

	p := &Payment{
		ID:            r.newID(),
		OrderID:       c.OrderID,
		VendorID:      c.VendorID,
		CustomerID:    c.CustomerID,
		Amount:        c.Amount,
		Method:        c.Method,
		TransactionID: txID,
		Status:        status,
		PaidAt:        r.now().UTC(),
	}
	if c.Method.RequiresVerification() {
		p.GatewayOrderID = c.Assertion.GatewayOrderID
		p.GatewaySignature = c.Assertion.Signature
	}
	return p
}

// Record builds the payment for c and stores it through repo.
func (r *Recorder) Record(ctx context.Context, repo Repository, c Charge) (*Payment, error) {
	p := r.NewRecord(c)
	if err := repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create payment")
	}
	return p, nil
}
