package order

import (
	"context"

	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
	"github.com/xenking/bazaar-checkout/internal/domain/store"
)

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Products() product.Inventory
	Stores() store.Repository
	Coupons() coupon.Repository
	Orders() Repository
	Payments() payment.Repository
}

// UnitOfWork runs fn atomically. If fn returns an error every mutation made
// through tx is reverted; otherwise all of them are committed together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
