package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
)

const (
	couponColumns = `id, code, discount_type, value, max_discount, min_items, description,
		valid_from, valid_until, max_uses, used_count, used_by, active`

	lockCouponSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 FOR UPDATE`

	redeemCouponSQL = `UPDATE coupons SET used_count = used_count + 1, used_by = array_append(used_by, $2)
		WHERE id = $1`

	upsertCouponSQL = `INSERT INTO coupons (id, code, discount_type, value, max_discount, min_items,
			description, valid_from, valid_until, max_uses, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT ((UPPER(code))) DO UPDATE SET discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value, max_discount = EXCLUDED.max_discount, min_items = EXCLUDED.min_items,
			description = EXCLUDED.description, valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until, max_uses = EXCLUDED.max_uses, active = EXCLUDED.active`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	q querier
}

// NewCouponRepository returns a CouponRepository that uses q, either a pool
// or a transaction.
func NewCouponRepository(q querier) *CouponRepository {
	return &CouponRepository{q: q}
}

// FindByID returns the coupon and locks its row until the transaction ends.
func (r *CouponRepository) FindByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.q.Query(ctx, lockCouponSQL, id)
	if err != nil {
		return nil, fmt.Errorf("locking coupon %q: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("locking coupon %q: %w", id, err)
	}
	return &c, nil
}

// Redeem increments the usage counter and appends userID to the redeemers.
func (r *CouponRepository) Redeem(ctx context.Context, id, userID string) error {
	tag, err := r.q.Exec(ctx, redeemCouponSQL, id, userID)
	if err != nil {
		return fmt.Errorf("redeeming coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Upsert inserts a coupon or updates the rule of the coupon with the same
// code. Usage accounting of an existing coupon is preserved.
func (r *CouponRepository) Upsert(ctx context.Context, c coupon.Coupon) error {
	_, err := r.q.Exec(ctx, upsertCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.Value, c.MaxDiscount, c.MinItems,
		c.Description, c.ValidFrom, c.ValidUntil, c.MaxUses, c.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		minItems     int32
		validFrom    *time.Time
		validUntil   *time.Time
		maxUses      int32
		usedCount    int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &c.Value, &c.MaxDiscount, &minItems, &c.Description,
		&validFrom, &validUntil, &maxUses, &usedCount, &c.UsedBy, &c.Active,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	c.MinItems = int(minItems)
	c.ValidFrom = validFrom
	c.ValidUntil = validUntil
	c.MaxUses = int(maxUses)
	c.UsedCount = int(usedCount)
	return c, err
}
