package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/domain/auth"
	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
)

type cartItemBody struct {
	Product  string          `json:"product" binding:"required"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Unit     string          `json:"unit"`
}

type addressBody struct {
	HouseNo  string `json:"houseNo"`
	Landmark string `json:"landmark"`
	City     string `json:"city"`
	State    string `json:"state"`
	PinCode  string `json:"pinCode"`
	Mobile   string `json:"mobile"`
}

type couponBody struct {
	ID   string `json:"_id" binding:"required"`
	Code string `json:"code" binding:"required"`
}

type placeOrderBody struct {
	Items             []cartItemBody  `json:"items" binding:"required,min=1,dive"`
	ShippingAddress   addressBody     `json:"shippingAddress"`
	PaymentMethod     string          `json:"paymentMethod" binding:"required"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	AppliedCoupon     *couponBody     `json:"appliedCoupon"`
	TransactionID     string          `json:"transactionId"`
	RazorpayOrderID   string          `json:"razorpayOrderId"`
	RazorpaySignature string          `json:"razorpaySignature"`
}

func (b placeOrderBody) request(p auth.Principal) order.PlaceOrderRequest {
	items := make([]order.CartItem, len(b.Items))
	for i, it := range b.Items {
		items[i] = order.CartItem{
			ProductID: it.Product,
			Name:      it.Name,
			Image:     it.Image,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Unit:      it.Unit,
		}
	}
	req := order.PlaceOrderRequest{
		Customer:        p,
		Items:           items,
		ShippingAddress: order.ShippingAddress(b.ShippingAddress),
		PaymentMethod:   payment.Method(b.PaymentMethod),
		TotalPrice:      b.TotalPrice,
		Payment: payment.Assertion{
			GatewayOrderID: b.RazorpayOrderID,
			TransactionID:  b.TransactionID,
			Signature:      b.RazorpaySignature,
		},
	}
	if c := b.AppliedCoupon; c != nil {
		req.Coupon = &coupon.Ref{ID: c.ID, Code: c.Code}
	}
	return req
}

type lineItemResponse struct {
	Product  string          `json:"product"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Unit     string          `json:"unit"`
}

type couponResponse struct {
	ID             string          `json:"_id"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	DiscountType   string          `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
}

type paymentResponse struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transactionId"`
	Status        string          `json:"status"`
	PaidAt        time.Time       `json:"paidAt"`
}

// OrderResponse is the JSON form of an order.
type OrderResponse struct {
	ID              string             `json:"id"`
	CustomerID      string             `json:"customer"`
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail"`
	StoreID         string             `json:"store"`
	StoreName       string             `json:"storeName"`
	Items           []lineItemResponse `json:"items"`
	ShippingAddress addressBody        `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	TotalPrice      decimal.Decimal    `json:"totalPrice"`
	Coupon          *couponResponse    `json:"coupon,omitempty"`
	TransactionID   string             `json:"transactionId,omitempty"`
	RazorpayOrderID string             `json:"razorpayOrderId,omitempty"`
	DeliveryOTP     string             `json:"deliveryOtp,omitempty"`
	Status          string             `json:"status"`
	Payment         *paymentResponse   `json:"payment,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
	DeliveredAt     *time.Time         `json:"deliveredAt,omitempty"`
}

// toOrderResponse renders o for viewer. The delivery code is shown to the
// ordering customer only.
func toOrderResponse(o *order.Order, viewer auth.Principal) OrderResponse {
	items := make([]lineItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = lineItemResponse{
			Product:  it.ProductID,
			Name:     it.Name,
			Image:    it.Image,
			Price:    it.Price,
			Quantity: it.Quantity,
			Unit:     it.Unit,
		}
	}
	resp := OrderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		StoreID:         o.StoreID,
		StoreName:       o.StoreName,
		Items:           items,
		ShippingAddress: addressBody(o.ShippingAddress),
		PaymentMethod:   string(o.PaymentMethod),
		TotalPrice:      o.TotalPrice,
		TransactionID:   o.Gateway.TransactionID,
		RazorpayOrderID: o.Gateway.OrderID,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		DeliveredAt:     o.DeliveredAt,
	}
	if viewer.UserID == o.CustomerID {
		resp.DeliveryOTP = o.DeliveryCode
	}
	if c := o.Coupon; c != nil {
		resp.Coupon = &couponResponse{
			ID:             c.CouponID,
			Code:           c.Code,
			DiscountAmount: c.DiscountAmount,
			DiscountType:   string(c.DiscountType),
			DiscountValue:  c.DiscountValue,
		}
	}
	if p := o.Payment; p != nil {
		resp.Payment = &paymentResponse{
			ID:            p.ID,
			Amount:        p.Amount,
			Method:        string(p.Method),
			TransactionID: p.TransactionID,
			Status:        string(p.Status),
			PaidAt:        p.PaidAt,
		}
	}
	return resp
}

func toOrderResponses(orders []order.Order, viewer auth.Principal) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i], viewer)
	}
	return out
}

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var body placeOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, bindError(err))
		return
	}

	p := principal(c)
	o, err := h.orders.PlaceOrder(c.Request.Context(), body.request(p))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(o, p))
}

// ListMyOrders handles GET /api/orders/mine.
func (h *Handler) ListMyOrders(c *gin.Context) {
	p := principal(c)
	orders, err := h.orders.ListCustomerOrders(c.Request.Context(), p)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponses(orders, p))
}

// ListVendorOrders handles GET /api/orders/vendor.
func (h *Handler) ListVendorOrders(c *gin.Context) {
	p := principal(c)
	orders, err := h.orders.ListVendorOrders(c.Request.Context(), p)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponses(orders, p))
}

// GetOrder handles GET /api/orders/:id.
func (h *Handler) GetOrder(c *gin.Context) {
	p := principal(c)
	o, err := h.orders.GetOrder(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o, p))
}

type statusBody struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PUT /api/orders/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, bindError(err))
		return
	}

	p := principal(c)
	o, err := h.orders.UpdateStatus(c.Request.Context(), p, c.Param("id"), order.Status(body.Status))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o, p))
}

type deliverBody struct {
	OTP string `json:"otp" binding:"required"`
}

// ConfirmDelivery handles POST /api/orders/:id/deliver.
func (h *Handler) ConfirmDelivery(c *gin.Context) {
	var body deliverBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, bindError(err))
		return
	}

	p := principal(c)
	o, err := h.orders.ConfirmDelivery(c.Request.Context(), p, c.Param("id"), body.OTP)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o, p))
}
