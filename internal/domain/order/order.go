package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
)

// Order is a customer's purchase from a single store. Line items are a
// snapshot taken at checkout and never change afterwards.
type Order struct {
	ID              string
	CustomerID      string
	CustomerName    string
	CustomerEmail   string
	StoreID         string
	StoreName       string
	VendorID        string
	Items           []LineItem
	ShippingAddress ShippingAddress
	PaymentMethod   payment.Method
	TotalPrice      decimal.Decimal
	Coupon          *CouponSnapshot
	Gateway         GatewayRefs
	DeliveryCode    string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeliveredAt     *time.Time

	// Payment is attached by the service when returning an order.
	Payment *payment.Payment
}

// Subtotal returns the sum of line totals before any discount.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// LineItem is an immutable snapshot of one purchased product.
type LineItem struct {
	ProductID string
	Name      string
	Image     string
	Price     decimal.Decimal
	Quantity  int
	Unit      string
}

// LineTotal returns price * quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ShippingAddress is where the order is delivered.
type ShippingAddress struct {
	HouseNo  string
	Landmark string
	City     string
	State    string
	PinCode  string
	Mobile   string
}

// CouponSnapshot records the coupon applied at checkout.
type CouponSnapshot struct {
	CouponID       string
	Code           string
	DiscountAmount decimal.Decimal
	DiscountType   coupon.DiscountType
	DiscountValue  decimal.Decimal
}

// GatewayRefs are the payment gateway identifiers presented by the client.
type GatewayRefs struct {
	OrderID       string
	TransactionID string
	Signature     string
}

// Repository persists orders inside a unit of work.
//
// LockByID must lock the order row for the rest of the unit of work.
// Save persists status, UpdatedAt and DeliveredAt of an existing order.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	LockByID(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListByVendor(ctx context.Context, vendorID string) ([]Order, error)
	Save(ctx context.Context, o *Order) error
}
