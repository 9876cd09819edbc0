package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item sold by a single store.
type Product struct {
	ID      string
	StoreID string
	Name    string
	Price   decimal.Decimal
	Stock   int
	Unit    string
	Image   string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Inventory is the transactional view of product stock. Implementations are
// bound to a unit of work: LockByIDs must prevent concurrent writers from
// changing the returned rows until the unit of work ends.
type Inventory interface {
	LockByIDs(ctx context.Context, ids []string) ([]Product, error)
	DecrementStock(ctx context.Context, id string, quantity int) error
}
