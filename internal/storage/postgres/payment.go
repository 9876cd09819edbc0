package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/bazaar-checkout/internal/domain/payment"
)

const (
	createPaymentSQL = `INSERT INTO payments (id, order_id, vendor_id, customer_id, amount, method,
			transaction_id, gateway_order_id, gateway_signature, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getPaymentByOrderSQL = `SELECT id, order_id, vendor_id, customer_id, amount, method,
			transaction_id, gateway_order_id, gateway_signature, status, paid_at
		FROM payments WHERE order_id = $1`

	updatePaymentStatusSQL = `UPDATE payments SET status = $2 WHERE order_id = $1`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	q querier
}

// NewPaymentRepository returns a PaymentRepository that uses q, either a
// pool or a transaction.
func NewPaymentRepository(q querier) *PaymentRepository {
	return &PaymentRepository{q: q}
}

// Create inserts the payment. The unique constraints on order_id and
// transaction_id surface as payment.ErrDuplicatePayment.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.q.Exec(ctx, createPaymentSQL,
		p.ID, p.OrderID, p.VendorID, p.CustomerID, p.Amount, string(p.Method),
		p.TransactionID, p.GatewayOrderID, p.GatewaySignature, string(p.Status), p.PaidAt,
	)
	if err != nil {
		if isUniqueViolation(err, "payments_order_id_key") || isUniqueViolation(err, "payments_transaction_id_key") {
			return payment.ErrDuplicatePayment
		}
		return fmt.Errorf("creating payment for order %q: %w", p.OrderID, err)
	}
	return nil
}

// GetByOrderID returns the payment of an order.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	rows, err := r.q.Query(ctx, getPaymentByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting payment of order %q: %w", orderID, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (payment.Payment, error) {
		var (
			p      payment.Payment
			method string
			status string
		)
		err := row.Scan(&p.ID, &p.OrderID, &p.VendorID, &p.CustomerID, &p.Amount, &method,
			&p.TransactionID, &p.GatewayOrderID, &p.GatewaySignature, &status, &p.PaidAt)
		p.Method = payment.Method(method)
		p.Status = payment.Status(status)
		return p, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("getting payment of order %q: %w", orderID, err)
	}
	return &p, nil
}

// UpdateStatus sets the status of an order's payment.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, orderID string, status payment.Status) error {
	tag, err := r.q.Exec(ctx, updatePaymentStatusSQL, orderID, string(status))
	if err != nil {
		return fmt.Errorf("updating payment of order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrNotFound
	}
	return nil
}
