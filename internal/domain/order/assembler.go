package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/domain/auth"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
	"github.com/xenking/bazaar-checkout/internal/domain/store"
)

// CodeGenerator produces delivery confirmation codes.
type CodeGenerator func() (string, error)

var codeSpace = big.NewInt(1_000_000)

// RandomDeliveryCode returns a uniformly random six digit code.
func RandomDeliveryCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", errors.Wrap(err, "read random")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Draft is the validated material an order is built from.
type Draft struct {
	Customer        auth.Principal
	Store           *store.Store
	Items           []LineItem
	ShippingAddress ShippingAddress
	PaymentMethod   payment.Method
	TotalPrice      decimal.Decimal
	Coupon          *CouponSnapshot
	Gateway         GatewayRefs
}

// Assembler builds new orders. It does no business validation.
type Assembler struct {
	code  CodeGenerator
	newID func() string
	now   func() time.Time
}

// NewAssembler creates an Assembler drawing delivery codes from code.
func NewAssembler(code CodeGenerator) *Assembler {
	if code == nil {
		code = RandomDeliveryCode
	}
	return &Assembler{
		code:  code,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Assemble maps d to a Pending order with a fresh id and delivery code.
func (a *Assembler) Assemble(d Draft) (*Order, error) {
	code, err := a.code()
	if err != nil {
		return nil, errors.Wrap(err, "generate delivery code")
	}
	now := a.now().UTC()

	items := make([]LineItem, len(d.Items))
	copy(items, d.Items)

	o := &Order{
		ID:              a.newID(),
		CustomerID:      d.Customer.UserID,
		CustomerName:    d.Customer.Name,
		CustomerEmail:   d.Customer.Email,
		StoreID:         d.Store.ID,
		StoreName:       d.Store.Name,
		VendorID:        d.Store.OwnerID,
		Items:           items,
		ShippingAddress: d.ShippingAddress,
		PaymentMethod:   d.PaymentMethod,
		TotalPrice:      d.TotalPrice.Round(2),
		Coupon:          d.Coupon,
		DeliveryCode:    code,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Gateway.TransactionID = d.Gateway.TransactionID
	if d.PaymentMethod.RequiresVerification() {
		o.Gateway = d.Gateway
	}
	return o, nil
}
