package store

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a store does not exist.
var ErrNotFound = errors.New("store not found")

// Store is a vendor storefront. Every store serves a single pin code.
type Store struct {
	ID      string
	OwnerID string
	Name    string
	Address Address
	Active  bool
}

// Address is a store's physical location.
type Address struct {
	Street  string
	City    string
	State   string
	PinCode string
}

// Repository provides store lookups.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Store, error)
}
