package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/bazaar-checkout/internal/domain/auth"
	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/inventory"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// statusOf maps a domain error to its HTTP status and client message.
func statusOf(err error) (int, string) {
	var (
		aborted   *order.TransactionAbortedError
		invalid   *order.ValidationError
		noProduct *order.ProductNotFoundError
		noStore   *order.StoreNotFoundError
		multi     *order.MultiStoreCartError
		area      *order.ServiceAreaMismatchError
		stock     *inventory.InsufficientStockError
	)
	switch {
	case errors.As(err, &aborted):
		return http.StatusInternalServerError, aborted.Error()

	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.As(err, &noProduct):
		return http.StatusBadRequest, noProduct.Error()
	case errors.As(err, &noStore):
		return http.StatusBadRequest, noStore.Error()
	case errors.As(err, &multi):
		return http.StatusBadRequest, multi.Error()
	case errors.As(err, &area):
		return http.StatusBadRequest, area.Error()
	case errors.Is(err, payment.ErrVerificationFailed):
		return http.StatusBadRequest, "payment verification failed"
	case errors.Is(err, order.ErrInvalidDeliveryCode),
		errors.Is(err, order.ErrDeliveryCodeRequired):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "not authorized, token failed"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "not authorized to access this resource"

	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, err.Error()

	case errors.As(err, &stock):
		return http.StatusConflict, stock.Error()
	case errors.Is(err, order.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, payment.ErrDuplicatePayment):
		return http.StatusConflict, "payment already recorded for this transaction"

	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponUsageLimitReached),
		errors.Is(err, coupon.ErrAlreadyRedeemed):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.Is(err, payment.ErrGatewayUnavailable):
		return http.StatusBadGateway, "payment gateway unavailable"
	}
	return http.StatusInternalServerError, "internal server error"
}

// abortWithError writes the mapped error response. Server-side failures are
// logged with their cause.
func abortWithError(c *gin.Context, err error) {
	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		zctx.From(c.Request.Context()).Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, ErrorResponse{Code: code, Message: msg})
}

// bindError converts a gin binding failure into a ValidationError naming the
// first offending field.
func bindError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		return &order.ValidationError{Field: fe.Namespace(), Reason: "failed on " + fe.Tag()}
	}
	return &order.ValidationError{Reason: "malformed request body"}
}
