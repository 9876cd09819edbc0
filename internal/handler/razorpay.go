package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
)

type gatewayOrderBody struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// GatewayOrderResponse is returned to the client to open the checkout widget.
type GatewayOrderResponse struct {
	OrderID  string          `json:"orderId"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// CreateGatewayOrder handles POST /api/razorpay/create-order.
func (h *Handler) CreateGatewayOrder(c *gin.Context) {
	var body gatewayOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, bindError(err))
		return
	}
	if !body.Amount.IsPositive() {
		abortWithError(c, &order.ValidationError{Field: "amount", Reason: "must be a positive number"})
		return
	}
	if payment.MinorUnits(body.Amount) <= 0 {
		abortWithError(c, &order.ValidationError{Field: "amount", Reason: "below the smallest currency unit"})
		return
	}
	if body.Currency == "" {
		body.Currency = h.cfg.Currency
	}
	if h.gateway == nil {
		abortWithError(c, payment.ErrGatewayUnavailable)
		return
	}

	o, err := h.gateway.CreateOrder(c.Request.Context(), body.Amount, body.Currency)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, GatewayOrderResponse{
		OrderID:  o.ID,
		Currency: o.Currency,
		Amount:   o.Amount,
	})
}
