// Package memory is an in-process implementation of the storage ports.
// A unit of work runs on a private copy of the data under a single lock and
// replaces the shared copy only when it succeeds.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
	"github.com/xenking/bazaar-checkout/internal/domain/store"
)

// Store holds every entity in memory.
type Store struct {
	mu   sync.Mutex
	data *state
}

var (
	_ order.UnitOfWork   = (*Store)(nil)
	_ product.Repository = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{data: newState()}
}

// Do runs fn on a snapshot of the data. Units of work are serialized.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "begin")
	}
	work := s.data.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "commit")
	}
	s.data = work
	return nil
}

// PutStore inserts or replaces a store.
func (s *Store) PutStore(st store.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.stores[st.ID] = st
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.products[p.ID] = p
}

// PutCoupon inserts or replaces a coupon.
func (s *Store) PutCoupon(c coupon.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.coupons[c.ID] = cloneCoupon(c)
}

// Coupon returns a copy of the coupon with the given id.
func (s *Store) Coupon(id string) (coupon.Coupon, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.coupons[id]
	return cloneCoupon(c), ok
}

// Payments returns every stored payment ordered by order id.
func (s *Store) Payments() []payment.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]payment.Payment, 0, len(s.data.payments))
	for _, p := range s.data.payments {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b payment.Payment) int { return cmp.Compare(a.OrderID, b.OrderID) })
	return out
}

// OrderCount returns the number of stored orders.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.orders)
}

// List returns all products ordered by id.
func (s *Store) List(ctx context.Context) ([]product.Product, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]product.Product, 0, len(s.data.products))
	for _, p := range s.data.products {
		out = append(out, p)
	}
	slices.SortFunc(out, byProductID)
	return out, nil
}

// GetByID returns a single product.
func (s *Store) GetByID(ctx context.Context, id string) (*product.Product, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs returns the products that exist among ids.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.productsByIDs(ids), nil
}

type state struct {
	products map[string]product.Product
	stores   map[string]store.Store
	coupons  map[string]coupon.Coupon
	orders   map[string]order.Order
	// payments is keyed by order id.
	payments map[string]payment.Payment
	// txIDs maps a payment transaction id to its order id.
	txIDs map[string]string
}

func newState() *state {
	return &state{
		products: make(map[string]product.Product),
		stores:   make(map[string]store.Store),
		coupons:  make(map[string]coupon.Coupon),
		orders:   make(map[string]order.Order),
		payments: make(map[string]payment.Payment),
		txIDs:    make(map[string]string),
	}
}

// clone copies the maps. Values holding slices are copied again whenever a
// unit of work writes them, so the snapshot never aliases live data.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.stores {
		c.stores[k] = v
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.txIDs {
		c.txIDs[k] = v
	}
	return c
}

func (s *state) productsByIDs(ids []string) []product.Product {
	out := make([]product.Product, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, byProductID)
	return out
}

func byProductID(a, b product.Product) int {
	return cmp.Compare(a.ID, b.ID)
}

func cloneCoupon(c coupon.Coupon) coupon.Coupon {
	c.UsedBy = slices.Clone(c.UsedBy)
	return c
}

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	if o.Coupon != nil {
		snap := *o.Coupon
		o.Coupon = &snap
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	o.Payment = nil
	return o
}
