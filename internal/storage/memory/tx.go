package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/inventory"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
	"github.com/xenking/bazaar-checkout/internal/domain/store"
)

type tx struct {
	st *state
}

var _ order.Tx = (*tx)(nil)

func (t *tx) Products() product.Inventory { return inventoryRepo{t.st} }
func (t *tx) Stores() store.Repository { return storeRepo{t.st} }
func (t *tx) Coupons() coupon.Repository { return couponRepo{t.st} }
func (t *tx) Orders() order.Repository { return orderRepo{t.st} }
func (t *tx) Payments() payment.Repository { return paymentRepo{t.st} }

type inventoryRepo struct{ st *state }

func (r inventoryRepo) LockByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	return r.st.productsByIDs(ids), nil
}

func (r inventoryRepo) DecrementStock(_ context.Context, id string, quantity int) error {
	p, ok := r.st.products[id]
	if !ok {
		return product.ErrNotFound
	}
	if p.Stock < quantity {
		return &inventory.InsufficientStockError{
			ProductID: p.ID,
			Name:      p.Name,
			Available: p.Stock,
			Requested: quantity,
		}
	}
	p.Stock -= quantity
	r.st.products[id] = p
	return nil
}

type storeRepo struct{ st *state }

func (r storeRepo) FindByID(_ context.Context, id string) (*store.Store, error) {
	s, ok := r.st.stores[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

type couponRepo struct{ st *state }

func (r couponRepo) FindByID(_ context.Context, id string) (*coupon.Coupon, error) {
	c, ok := r.st.coupons[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	c = cloneCoupon(c)
	return &c, nil
}

func (r couponRepo) Redeem(_ context.Context, id, userID string) error {
	c, ok := r.st.coupons[id]
	if !ok {
		return coupon.ErrNotFound
	}
	c = cloneCoupon(c)
	c.UsedCount++
	c.UsedBy = append(c.UsedBy, userID)
	r.st.coupons[id] = c
	return nil
}

type orderRepo struct{ st *state }

func (r orderRepo) Create(_ context.Context, o *order.Order) error {
	if o == nil || o.ID == "" {
		return errors.New("order id is required")
	}
	if _, exists := r.st.orders[o.ID]; exists {
		return errors.Errorf("order %s already exists", o.ID)
	}
	r.st.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r orderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r orderRepo) LockByID(ctx context.Context, id string) (*order.Order, error) {
	return r.GetByID(ctx, id)
}

func (r orderRepo) ListByCustomer(_ context.Context, customerID string) ([]order.Order, error) {
	return r.filter(func(o order.Order) bool { return o.CustomerID == customerID }), nil
}

func (r orderRepo) ListByVendor(_ context.Context, vendorID string) ([]order.Order, error) {
	return r.filter(func(o order.Order) bool { return o.VendorID == vendorID }), nil
}

func (r orderRepo) Save(_ context.Context, o *order.Order) error {
	cur, ok := r.st.orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	cur = cloneOrder(cur)
	cur.Status = o.Status
	cur.UpdatedAt = o.UpdatedAt
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		cur.DeliveredAt = &t
	}
	r.st.orders[o.ID] = cur
	return nil
}

// filter returns matching orders, newest first.
func (r orderRepo) filter(match func(order.Order) bool) []order.Order {
	var out []order.Order
	for _, o := range r.st.orders {
		if match(o) {
			out = append(out, cloneOrder(o))
		}
	}
	slices.SortFunc(out, func(a, b order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

type paymentRepo struct{ st *state }

func (r paymentRepo) Create(_ context.Context, p *payment.Payment) error {
	if _, exists := r.st.payments[p.OrderID]; exists {
		return payment.ErrDuplicatePayment
	}
	if _, exists := r.st.txIDs[p.TransactionID]; exists {
		return payment.ErrDuplicatePayment
	}
	r.st.payments[p.OrderID] = *p
	r.st.txIDs[p.TransactionID] = p.OrderID
	return nil
}

func (r paymentRepo) GetByOrderID(_ context.Context, orderID string) (*payment.Payment, error) {
	p, ok := r.st.payments[orderID]
	if !ok {
		return nil, payment.ErrNotFound
	}
	return &p, nil
}

func (r paymentRepo) UpdateStatus(_ context.Context, orderID string, status payment.Status) error {
	p, ok := r.st.payments[orderID]
	if !ok {
		return payment.ErrNotFound
	}
	p.Status = status
	r.st.payments[orderID] = p
	return nil
}
