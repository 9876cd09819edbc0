package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
	"github.com/xenking/bazaar-checkout/internal/domain/store"
)

var _ order.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs order work inside a single database transaction. Rows are
// locked with SELECT ... FOR UPDATE so concurrent checkouts touching the
// same products or coupon serialize on those rows.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a UnitOfWork that uses the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Do begins a transaction, runs fn and commits. Any error from fn rolls the
// transaction back.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return pgx.BeginTxFunc(ctx, u.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(t pgx.Tx) error {
		return fn(ctx, &txRepos{q: t})
	})
}

type txRepos struct {
	q querier
}

func (t *txRepos) Products() product.Inventory { return &inventoryRepo{q: t.q} }
func (t *txRepos) Stores() store.Repository { return &StoreRepository{q: t.q} }
func (t *txRepos) Coupons() coupon.Repository { return &CouponRepository{q: t.q} }
func (t *txRepos) Orders() order.Repository { return &OrderRepository{q: t.q} }
func (t *txRepos) Payments() payment.Repository { return &PaymentRepository{q: t.q} }
