package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
)

const (
	orderColumns = `id, customer_id, customer_name, customer_email, store_id, store_name, vendor_id,
		items, shipping_address, payment_method, total_price, coupon,
		gateway_order_id, transaction_id, gateway_signature, delivery_code, status,
		created_at, updated_at, delivered_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	lockOrderSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersByCustomerSQL = `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1
		ORDER BY created_at DESC, id`

	listOrdersByVendorSQL = `SELECT ` + orderColumns + ` FROM orders WHERE vendor_id = $1
		ORDER BY created_at DESC, id`

	saveOrderSQL = `UPDATE orders SET status = $2, updated_at = $3, delivered_at = $4 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items, the shipping address and the coupon snapshot are stored as JSONB.
type OrderRepository struct {
	q querier
}

// NewOrderRepository returns an OrderRepository that uses q, either a pool
// or a transaction.
func NewOrderRepository(q querier) *OrderRepository {
	return &OrderRepository{q: q}
}

type lineItemJSON struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Unit      string          `json:"unit"`
}

type addressJSON struct {
	HouseNo  string `json:"houseNo"`
	Landmark string `json:"landmark,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	PinCode  string `json:"pinCode"`
	Mobile   string `json:"mobile"`
}

type couponJSON struct {
	CouponID       string          `json:"couponId"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	DiscountType   string          `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items := make([]lineItemJSON, len(o.Items))
	for i, it := range o.Items {
		items[i] = lineItemJSON(it)
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	addrJSON, err := json.Marshal(addressJSON(o.ShippingAddress))
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}
	var cpJSON []byte
	if c := o.Coupon; c != nil {
		cpJSON, err = json.Marshal(couponJSON{
			CouponID:       c.CouponID,
			Code:           c.Code,
			DiscountAmount: c.DiscountAmount,
			DiscountType:   string(c.DiscountType),
			DiscountValue:  c.DiscountValue,
		})
		if err != nil {
			return fmt.Errorf("marshaling coupon snapshot: %w", err)
		}
	}

	_, err = r.q.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, o.CustomerName, o.CustomerEmail, o.StoreID, o.StoreName, o.VendorID,
		itemsJSON, addrJSON, string(o.PaymentMethod), o.TotalPrice, cpJSON,
		o.Gateway.OrderID, o.Gateway.TransactionID, o.Gateway.Signature, o.DeliveryCode, string(o.Status),
		o.CreatedAt, o.UpdatedAt, o.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderSQL, id)
}

// LockByID returns a single order and locks its row.
func (r *OrderRepository) LockByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, lockOrderSQL, id)
}

// ListByCustomer returns the customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.q.Query(ctx, listOrdersByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of customer %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListByVendor returns the orders of the vendor's stores, newest first.
func (r *OrderRepository) ListByVendor(ctx context.Context, vendorID string) ([]order.Order, error) {
	rows, err := r.q.Query(ctx, listOrdersByVendorSQL, vendorID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of vendor %q: %w", vendorID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Save persists the lifecycle fields of an existing order.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	tag, err := r.q.Exec(ctx, saveOrderSQL, o.ID, string(o.Status), o.UpdatedAt, o.DeliveredAt)
	if err != nil {
		return fmt.Errorf("saving order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) getOne(ctx context.Context, sql, id string) (*order.Order, error) {
	rows, err := r.q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		itemsJSON   []byte
		addrJSON    []byte
		cpJSON      []byte
		method      string
		status      string
		deliveredAt *time.Time
	)
	if err := row.Scan(
		&o.ID, &o.CustomerID, &o.CustomerName, &o.CustomerEmail, &o.StoreID, &o.StoreName, &o.VendorID,
		&itemsJSON, &addrJSON, &method, &o.TotalPrice, &cpJSON,
		&o.Gateway.OrderID, &o.Gateway.TransactionID, &o.Gateway.Signature, &o.DeliveryCode, &status,
		&o.CreatedAt, &o.UpdatedAt, &deliveredAt,
	); err != nil {
		return o, err
	}
	o.PaymentMethod = payment.Method(method)
	o.Status = order.Status(status)
	o.DeliveredAt = deliveredAt

	var items []lineItemJSON
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %q: %w", o.ID, err)
	}
	o.Items = make([]order.LineItem, len(items))
	for i, it := range items {
		o.Items[i] = order.LineItem(it)
	}

	var addr addressJSON
	if err := json.Unmarshal(addrJSON, &addr); err != nil {
		return o, fmt.Errorf("unmarshaling address of order %q: %w", o.ID, err)
	}
	o.ShippingAddress = order.ShippingAddress(addr)

	if len(cpJSON) > 0 {
		var c couponJSON
		if err := json.Unmarshal(cpJSON, &c); err != nil {
			return o, fmt.Errorf("unmarshaling coupon of order %q: %w", o.ID, err)
		}
		o.Coupon = &order.CouponSnapshot{
			CouponID:       c.CouponID,
			Code:           c.Code,
			DiscountAmount: c.DiscountAmount,
			DiscountType:   coupon.DiscountType(c.DiscountType),
			DiscountValue:  c.DiscountValue,
		}
	}
	return o, nil
}
