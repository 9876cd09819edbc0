package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/domain/product"
)

// ProductResponse is the JSON form of a catalog product.
type ProductResponse struct {
	ID      string          `json:"id"`
	StoreID string          `json:"store"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Stock   int             `json:"stock"`
	Unit    string          `json:"unit"`
	Image   string          `json:"image"`
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		abortWithError(c, errors.Wrap(err, "list products"))
		return
	}
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = h.productResponse(p)
	}
	c.JSON(http.StatusOK, out)
}

// GetProduct handles GET /api/products/:id.
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.productResponse(*p))
}

// productResponse prefixes relative image paths with the configured base URL.
func (h *Handler) productResponse(p product.Product) ProductResponse {
	img := p.Image
	if h.cfg.ImageBaseURL != "" && img != "" && !strings.Contains(img, "://") {
		img = strings.TrimRight(h.cfg.ImageBaseURL, "/") + "/" + strings.TrimLeft(img, "/")
	}
	return ProductResponse{
		ID:      p.ID,
		StoreID: p.StoreID,
		Name:    p.Name,
		Price:   p.Price,
		Stock:   p.Stock,
		Unit:    p.Unit,
		Image:   img,
	}
}
