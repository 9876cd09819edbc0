package order

import (
	"context"
	"crypto/subtle"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bazaar-checkout/internal/domain/auth"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
)

// GetOrder returns an order visible to p: its customer, the owning vendor
// or an admin.
func (s *Service) GetOrder(ctx context.Context, p auth.Principal, id string) (*Order, error) {
	var out *Order
	err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !canView(p, o) {
			return auth.ErrForbidden
		}
		if o.Payment, err = attachPayment(ctx, tx, o.ID); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, wrapLifecycle(err, "get order")
	}
	return out, nil
}

// ListCustomerOrders returns the orders placed by p, newest first.
func (s *Service) ListCustomerOrders(ctx context.Context, p auth.Principal) ([]Order, error) {
	if p.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}
	var out []Order
	err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) (err error) {
		out, err = tx.Orders().ListByCustomer(ctx, p.UserID)
		return err
	})
	if err != nil {
		return nil, wrapLifecycle(err, "list customer orders")
	}
	return out, nil
}

// ListVendorOrders returns the orders of every store owned by p, newest first.
func (s *Service) ListVendorOrders(ctx context.Context, p auth.Principal) ([]Order, error) {
	if !p.Is(auth.RoleVendor) {
		return nil, auth.ErrForbidden
	}
	var out []Order
	err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) (err error) {
		out, err = tx.Orders().ListByVendor(ctx, p.UserID)
		return err
	})
	if err != nil {
		return nil, wrapLifecycle(err, "list vendor orders")
	}
	return out, nil
}

// UpdateStatus moves an order along the state machine. Refunding also marks
// the payment Refunded. Coupon usage is left untouched.
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, id string, to Status) (*Order, error) {
	if !p.Is(auth.RoleVendor, auth.RoleAdmin) {
		return nil, auth.ErrForbidden
	}
	var out *Order
	err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().LockByID(ctx, id)
		if err != nil {
			return err
		}
		if !canManage(p, o) {
			return auth.ErrForbidden
		}
		if err := CheckTransition(o.Status, to); err != nil {
			return err
		}

		o.Status = to
		o.UpdatedAt = s.now().UTC()
		if err := tx.Orders().Save(ctx, o); err != nil {
			return errors.Wrap(err, "save order")
		}
		if to == StatusRefunded {
			if err := tx.Payments().UpdateStatus(ctx, o.ID, payment.StatusRefunded); err != nil {
				return errors.Wrap(err, "refund payment")
			}
		}
		if o.Payment, err = attachPayment(ctx, tx, o.ID); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, wrapLifecycle(err, "update status")
	}

	zctx.From(ctx).Info("Order status updated",
		zap.String("order_id", out.ID),
		zap.String("status", string(out.Status)),
	)
	return out, nil
}

// ConfirmDelivery marks the order Delivered when code matches the stored
// delivery code. A pending cash on delivery payment becomes Paid. On a wrong
// code nothing changes.
func (s *Service) ConfirmDelivery(ctx context.Context, p auth.Principal, id, code string) (*Order, error) {
	if !p.Is(auth.RoleVendor, auth.RoleAdmin) {
		return nil, auth.ErrForbidden
	}
	if err := ValidateDeliveryCode(code); err != nil {
		return nil, err
	}
	var out *Order
	err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().LockByID(ctx, id)
		if err != nil {
			return err
		}
		if !canManage(p, o) {
			return auth.ErrForbidden
		}
		if o.Status.Terminal() {
			return &TransitionError{From: o.Status, To: StatusDelivered}
		}
		if subtle.ConstantTimeCompare([]byte(code), []byte(o.DeliveryCode)) != 1 {
			return ErrInvalidDeliveryCode
		}

		now := s.now().UTC()
		o.Status = StatusDelivered
		o.UpdatedAt = now
		o.DeliveredAt = &now
		if err := tx.Orders().Save(ctx, o); err != nil {
			return errors.Wrap(err, "save order")
		}

		pay, err := attachPayment(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		if pay != nil && pay.Method == payment.MethodCashOnDelivery && pay.Status == payment.StatusPending {
			if err := tx.Payments().UpdateStatus(ctx, o.ID, payment.StatusPaid); err != nil {
				return errors.Wrap(err, "settle cash payment")
			}
			pay.Status = payment.StatusPaid
		}
		o.Payment = pay
		out = o
		return nil
	})
	if err != nil {
		return nil, wrapLifecycle(err, "confirm delivery")
	}

	zctx.From(ctx).Info("Order delivered", zap.String("order_id", out.ID))
	return out, nil
}

func attachPayment(ctx context.Context, tx Tx, orderID string) (*payment.Payment, error) {
	p, err := tx.Payments().GetByOrderID(ctx, orderID)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get payment")
	}
	return p, nil
}

func canView(p auth.Principal, o *Order) bool {
	return p.Is(auth.RoleAdmin) || o.CustomerID == p.UserID || o.VendorID == p.UserID
}

func canManage(p auth.Principal, o *Order) bool {
	return p.Is(auth.RoleAdmin) || (p.Is(auth.RoleVendor) && o.VendorID == p.UserID)
}

// wrapLifecycle keeps domain errors matchable and adds context to the rest.
func wrapLifecycle(err error, op string) error {
	var (
		validation *ValidationError
		transition *TransitionError
	)
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidDeliveryCode),
		errors.Is(err, ErrDeliveryCodeRequired),
		errors.Is(err, auth.ErrForbidden),
		errors.As(err, &validation),
		errors.As(err, &transition):
		return err
	}
	return errors.Wrap(err, op)
}
