package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/inventory"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
	"github.com/xenking/bazaar-checkout/internal/domain/store"
)

// Service coordinates order placement and the order lifecycle.
type Service struct {
	uow       UnitOfWork
	verifier  payment.Verifier
	ledger    *inventory.Ledger
	coupons   *coupon.Redeemer
	assembler *Assembler
	recorder  *payment.Recorder
	notifier  Notifier
	now       func() time.Time

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	codes          CodeGenerator

	tracer trace.Tracer
	placed metric.Int64Counter
	failed metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the post-commit notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithDeliveryCodes overrides the delivery code generator.
func WithDeliveryCodes(gen CodeGenerator) Option {
	return func(s *Service) { s.codes = gen }
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithClock overrides the wall clock used for lifecycle timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an order Service running every mutation through uow.
func NewService(uow UnitOfWork, verifier payment.Verifier, opts ...Option) (*Service, error) {
	s := &Service{
		uow:            uow,
		verifier:       verifier,
		ledger:         inventory.NewLedger(),
		coupons:        coupon.NewRedeemer(),
		recorder:       payment.NewRecorder(),
		notifier:       nopNotifier{},
		now:            time.Now,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}
	s.assembler = NewAssembler(s.codes)

	const name = "github.com/xenking/bazaar-checkout/internal/domain/order"
	s.tracer = s.tracerProvider.Tracer(name)
	meter := s.meterProvider.Meter(name)

	var err error
	if s.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders committed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}
	if s.failed, err = meter.Int64Counter("orders.failed",
		metric.WithDescription("Order placements rejected or aborted"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.failed counter")
	}
	return s, nil
}

// PlaceOrder runs the checkout transaction: it verifies the payment
// assertion, validates store, service area, stock and coupon, then decrements
// stock and persists the order, its payment and the coupon redemption in one
// unit of work. The notifier is called only after commit.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(
			attribute.String("customer.id", req.Customer.UserID),
			attribute.String("payment.method", string(req.PaymentMethod)),
			attribute.Int("items", len(req.Items)),
		),
	)
	defer span.End()
	defer func() { s.observe(ctx, span, rerr) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Pure check against the shared secret, so nothing is mutated on failure.
	if req.PaymentMethod.RequiresVerification() {
		if err := s.verifier.Verify(ctx, req.Payment); err != nil {
			return nil, err
		}
	}

	var placed *Order
	if err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		o, err := s.place(ctx, tx, req)
		if err != nil {
			return err
		}
		placed = o
		return nil
	}); err != nil {
		return nil, s.abort(ctx, err)
	}

	span.SetAttributes(attribute.String("order.id", placed.ID))
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", placed.ID),
		zap.String("store_id", placed.StoreID),
		zap.String("total", placed.TotalPrice.StringFixed(2)),
	)

	s.notifier.OrderPlaced(context.WithoutCancel(ctx), placed)
	return placed, nil
}

func (s *Service) place(ctx context.Context, tx Tx, req PlaceOrderRequest) (*Order, error) {
	ids := distinctProductIDs(req.Items)
	products, err := tx.Products().LockByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock products")
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, it := range req.Items {
		if _, ok := byID[it.ProductID]; !ok {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
	}

	storeID := byID[req.Items[0].ProductID].StoreID
	st, err := tx.Stores().FindByID(ctx, storeID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, &StoreNotFoundError{StoreID: storeID}
	case err != nil:
		return nil, errors.Wrap(err, "find store")
	case !st.Active:
		return nil, &StoreNotFoundError{StoreID: storeID}
	}

	for _, it := range req.Items {
		if p := byID[it.ProductID]; p.StoreID != st.ID {
			return nil, &MultiStoreCartError{StoreID: st.ID, ProductID: p.ID, OtherStoreID: p.StoreID}
		}
	}

	if req.ShippingAddress.PinCode != st.Address.PinCode {
		return nil, &ServiceAreaMismatchError{
			ShippingPinCode: req.ShippingAddress.PinCode,
			StorePinCode:    st.Address.PinCode,
		}
	}

	lines := make([]inventory.Line, len(req.Items))
	items := make([]LineItem, len(req.Items))
	priced := make([]coupon.Item, len(req.Items))
	for i, it := range req.Items {
		p := byID[it.ProductID]
		if !it.Price.Round(2).Equal(p.Price.Round(2)) {
			reason := fmt.Sprintf("price of %s changed from %s to %s, refresh the cart",
				p.Name, it.Price.StringFixed(2), p.Price.StringFixed(2))
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].price", i), Reason: reason}
		}
		lines[i] = inventory.Line{ProductID: p.ID, Quantity: it.Quantity}
		items[i] = snapshot(p, it)
		priced[i] = coupon.Item{ProductID: p.ID, Price: p.Price, Quantity: it.Quantity}
	}
	if err := s.ledger.Check(byID, lines); err != nil {
		return nil, err
	}

	discount := decimal.Zero
	var snap *CouponSnapshot
	if req.Coupon != nil {
		c, d, err := s.coupons.Quote(ctx, tx.Coupons(), *req.Coupon, req.Customer.UserID, priced)
		if err != nil {
			return nil, err
		}
		discount = d.Amount
		snap = &CouponSnapshot{
			CouponID:       c.ID,
			Code:           c.Code,
			DiscountAmount: d.Amount,
			DiscountType:   c.DiscountType,
			DiscountValue:  c.Value,
		}
	}

	expected := coupon.Subtotal(priced).Sub(discount).Round(2)
	if !req.TotalPrice.Round(2).Equal(expected) {
		return nil, &ValidationError{
			Field:  "totalPrice",
			Reason: "does not match cart total " + expected.StringFixed(2),
		}
	}

	if err := s.ledger.Reserve(ctx, tx.Products(), byID, lines); err != nil {
		return nil, err
	}

	o, err := s.assembler.Assemble(Draft{
		Customer:        req.Customer,
		Store:           st,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TotalPrice:      expected,
		Coupon:          snap,
		Gateway: GatewayRefs{
			OrderID:       req.Payment.GatewayOrderID,
			TransactionID: req.Payment.TransactionID,
			Signature:     req.Payment.Signature,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Orders().Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	p, err := s.recorder.Record(ctx, tx.Payments(), payment.Charge{
		OrderID:    o.ID,
		VendorID:   st.OwnerID,
		CustomerID: req.Customer.UserID,
		Amount:     o.TotalPrice,
		Method:     req.PaymentMethod,
		Assertion:  req.Payment,
	})
	if err != nil {
		return nil, err
	}
	o.Payment = p

	if snap != nil {
		if err := s.coupons.Redeem(ctx, tx.Coupons(), snap.CouponID, req.Customer.UserID); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// snapshot freezes the product as sold. Price, name and unit come from the
// catalog; the cart only supplies the image when the catalog has none.
func snapshot(p product.Product, it CartItem) LineItem {
	li := LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Image:     p.Image,
		Price:     p.Price,
		Quantity:  it.Quantity,
		Unit:      p.Unit,
	}
	if li.Image == "" {
		li.Image = it.Image
	}
	if li.Unit == "" {
		li.Unit = it.Unit
	}
	return li
}

func distinctProductIDs(items []CartItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

// abort passes domain errors through and wraps anything else.
func (s *Service) abort(ctx context.Context, err error) error {
	if failureReason(err) != "aborted" {
		return err
	}
	zctx.From(ctx).Error("Order transaction aborted", zap.Error(err))
	return &TransactionAbortedError{Cause: err}
}

func (s *Service) observe(ctx context.Context, span trace.Span, err error) {
	if err == nil {
		s.placed.Add(ctx, 1)
		return
	}
	reason := failureReason(err)
	s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	span.SetAttributes(attribute.String("failure.reason", reason))
	if reason == "aborted" {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction aborted")
	}
}

// failureReason classifies a placement error for metrics. Unknown errors
// are "aborted".
func failureReason(err error) string {
	var (
		validation   *ValidationError
		notFound     *ProductNotFoundError
		noStore      *StoreNotFoundError
		multiStore   *MultiStoreCartError
		serviceArea  *ServiceAreaMismatchError
		insufficient *inventory.InsufficientStockError
		aborted      *TransactionAbortedError
	)
	switch {
	case errors.As(err, &aborted):
		return "aborted"
	case errors.As(err, &validation):
		return "validation"
	case errors.Is(err, payment.ErrVerificationFailed):
		return "payment_verification"
	case errors.As(err, &notFound):
		return "product_not_found"
	case errors.As(err, &noStore):
		return "store_not_found"
	case errors.As(err, &multiStore):
		return "multi_store"
	case errors.As(err, &serviceArea):
		return "service_area"
	case errors.As(err, &insufficient):
		return "insufficient_stock"
	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponUsageLimitReached),
		errors.Is(err, coupon.ErrAlreadyRedeemed):
		return "coupon"
	case errors.Is(err, payment.ErrDuplicatePayment):
		return "duplicate_payment"
	}
	return "aborted"
}
