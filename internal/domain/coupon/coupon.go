package coupon

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

var (
	// ErrNotFound is returned by repositories when no coupon has the requested id.
	ErrNotFound = errors.New("coupon not found")
	// ErrInvalidCoupon is returned when a coupon does not exist, is inactive,
	// does not match the presented code or the cart misses its minimum items.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is outside its valid time window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrAlreadyRedeemed is returned when the customer has used the coupon before.
	ErrAlreadyRedeemed = errors.New("coupon already redeemed by this customer")
)

// Coupon is a redeemable discount rule with its usage accounting.
type Coupon struct {
	ID           string
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	// MaxDiscount caps percentage discounts. Zero means no cap.
	MaxDiscount decimal.Decimal
	MinItems    int
	Description string
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	// MaxUses of zero means unlimited.
	MaxUses   int
	UsedCount int
	UsedBy    []string
	Active    bool
}

// RedeemedBy reports whether userID is in the coupon's redeemer list.
func (c *Coupon) RedeemedBy(userID string) bool {
	return slices.Contains(c.UsedBy, userID)
}

// Ref is the client's reference to a coupon it applied to the cart.
type Ref struct {
	ID   string
	Code string
}

// Discount holds the computed discount amount and a human-readable description.
type Discount struct {
	Amount      decimal.Decimal
	Description string
}

// Item represents a line item in the cart for discount calculation purposes.
type Item struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

// Repository provides transactional access to coupons.
//
// FindByID must lock the coupon row for the rest of the unit of work.
// Redeem increments the usage counter and appends userID to the redeemer
// list; it is not idempotent.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Coupon, error)
	Redeem(ctx context.Context, id, userID string) error
}
