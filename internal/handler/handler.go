// Package handler exposes the checkout service over HTTP with gin.
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xenking/bazaar-checkout/internal/domain/auth"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
)

// Orders is the order use-case surface served by the handler.
type Orders interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
	GetOrder(ctx context.Context, p auth.Principal, id string) (*order.Order, error)
	ListCustomerOrders(ctx context.Context, p auth.Principal) ([]order.Order, error)
	ListVendorOrders(ctx context.Context, p auth.Principal) ([]order.Order, error)
	UpdateStatus(ctx context.Context, p auth.Principal, id string, to order.Status) (*order.Order, error)
	ConfirmDelivery(ctx context.Context, p auth.Principal, id, code string) (*order.Order, error)
}

// TokenParser resolves a bearer token to a principal.
type TokenParser interface {
	Parse(token string) (auth.Principal, error)
}

var _ Orders = (*order.Service)(nil)

// Config holds non-dependency settings.
type Config struct {
	// ImageBaseURL is prepended to relative product image paths.
	ImageBaseURL string
	// Currency is used for gateway orders when the client sends none.
	Currency string
}

// Handler serves the HTTP API.
type Handler struct {
	cfg      Config
	products product.Repository
	orders   Orders
	gateway  payment.Gateway
	tokens   TokenParser
}

// New creates a Handler. gateway may be nil when no payment gateway is
// configured.
func New(cfg Config, products product.Repository, orders Orders, gateway payment.Gateway, tokens TokenParser) *Handler {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Handler{
		cfg:      cfg,
		products: products,
		orders:   orders,
		gateway:  gateway,
		tokens:   tokens,
	}
}

// Register mounts the API under /api on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)

	authed := api.Group("", Authenticate(h.tokens))
	customer := RequireRole(auth.RoleCustomer)
	staff := RequireRole(auth.RoleVendor, auth.RoleAdmin)

	authed.POST("/orders", customer, h.PlaceOrder)
	authed.GET("/orders/mine", customer, h.ListMyOrders)
	authed.GET("/orders/vendor", RequireRole(auth.RoleVendor), h.ListVendorOrders)
	authed.GET("/orders/:id", h.GetOrder)
	authed.PUT("/orders/:id/status", staff, h.UpdateStatus)
	authed.POST("/orders/:id/deliver", staff, h.ConfirmDelivery)

	authed.POST("/razorpay/create-order", customer, h.CreateGatewayOrder)
}
