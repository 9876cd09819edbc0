package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Redeemer checks coupon eligibility and records redemptions. It holds no
// storage of its own: every call receives the Repository bound to the
// caller's unit of work.
type Redeemer struct {
	now func() time.Time
}

// NewRedeemer creates a Redeemer using the wall clock.
func NewRedeemer() *Redeemer {
	return &Redeemer{now: time.Now}
}

// Eligible checks that c can be redeemed by userID with the presented code.
func (r *Redeemer) Eligible(c *Coupon, code, userID string) error {
	if !c.Active || !strings.EqualFold(c.Code, strings.TrimSpace(code)) {
		return ErrInvalidCoupon
	}

	now := r.now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return ErrCouponExpired
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return ErrCouponExpired
	}

	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return ErrCouponUsageLimitReached
	}
	if c.RedeemedBy(userID) {
		return ErrAlreadyRedeemed
	}
	return nil
}

// Quote locks the referenced coupon, checks eligibility for userID and
// computes the discount for items.
func (r *Redeemer) Quote(ctx context.Context, repo Repository, ref Ref, userID string, items []Item) (*Coupon, Discount, error) {
	c, err := repo.FindByID(ctx, ref.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Discount{}, ErrInvalidCoupon
		}
		return nil, Discount{}, errors.Wrap(err, "lookup coupon")
	}

	if err := r.Eligible(c, ref.Code, userID); err != nil {
		return nil, Discount{}, err
	}

	d, err := Apply(c, items)
	if err != nil {
		return nil, Discount{}, err
	}
	return c, d, nil
}

// Redeem marks the coupon as used by userID. The caller invokes it exactly
// once per committed order.
func (r *Redeemer) Redeem(ctx context.Context, repo Repository, couponID, userID string) error {
	if err := repo.Redeem(ctx, couponID, userID); err != nil {
		return errors.Wrap(err, "redeem coupon")
	}
	return nil
}
