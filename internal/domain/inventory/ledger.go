// Package inventory guards product stock during checkout. Stock for a whole
// cart is validated before any counter is touched, so a failing line never
// leaves earlier lines decremented.
package inventory

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/bazaar-checkout/internal/domain/product"
)

// InsufficientStockError reports a product that cannot cover the requested quantity.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %q: available %d, requested %d", e.Name, e.Available, e.Requested)
}

// Line is a requested quantity of a single product.
type Line struct {
	ProductID string
	Quantity  int
}

// Ledger applies stock movements through a transactional product.Inventory.
type Ledger struct{}

// NewLedger returns a Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Check verifies that every product in lines can cover its total requested
// quantity. Lines referencing the same product are summed. The first
// violation, in cart order, is returned.
func (l *Ledger) Check(stock map[string]product.Product, lines []Line) error {
	for _, line := range merge(lines) {
		p, ok := stock[line.ProductID]
		if !ok {
			return errors.Errorf("product %s was not loaded", line.ProductID)
		}
		if p.Stock < line.Quantity {
			return &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
				Requested: line.Quantity,
			}
		}
	}
	return nil
}

// Reserve checks the whole cart and only then decrements every product.
// It must run inside the same unit of work that produced stock.
func (l *Ledger) Reserve(ctx context.Context, inv product.Inventory, stock map[string]product.Product, lines []Line) error {
	if err := l.Check(stock, lines); err != nil {
		return err
	}
	for _, line := range merge(lines) {
		if err := inv.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			return errors.Wrapf(err, "decrement %s", line.ProductID)
		}
	}
	return nil
}

// merge sums quantities per product, keeping first-seen order.
func merge(lines []Line) []Line {
	idx := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if i, ok := idx[line.ProductID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		idx[line.ProductID] = len(out)
		out = append(out, line)
	}
	return out
}
