package inventory

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bazaar-checkout/internal/domain/product"
)

type fakeInventory struct {
	stock map[string]int
	calls []string
	err   error
}

func (f *fakeInventory) LockByIDs(_ context.Context, _ []string) ([]product.Product, error) {
	return nil, nil
}

func (f *fakeInventory) DecrementStock(_ context.Context, id string, qty int) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, id)
	f.stock[id] -= qty
	return nil
}

func stockOf(products ...product.Product) map[string]product.Product {
	m := make(map[string]product.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}

func TestLedger_Check(t *testing.T) {
	stock := stockOf(
		product.Product{ID: "a", Name: "Apples", Stock: 5},
		product.Product{ID: "b", Name: "Bread", Stock: 1},
	)

	tests := []struct {
		name      string
		lines     []Line
		wantErr   bool
		wantID    string
		wantAvail int
		wantReq   int
	}{
		{name: "all within stock", lines: []Line{{"a", 5}, {"b", 1}}},
		{name: "second line short", lines: []Line{{"a", 1}, {"b", 2}}, wantErr: true, wantID: "b", wantAvail: 1, wantReq: 2},
		{name: "duplicate lines summed", lines: []Line{{"a", 3}, {"a", 3}}, wantErr: true, wantID: "a", wantAvail: 5, wantReq: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewLedger().Check(stock, tt.lines)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var isErr *InsufficientStockError
			require.ErrorAs(t, err, &isErr)
			assert.Equal(t, tt.wantID, isErr.ProductID)
			assert.Equal(t, tt.wantAvail, isErr.Available)
			assert.Equal(t, tt.wantReq, isErr.Requested)
		})
	}
}

func TestLedger_Reserve_NoPartialDecrement(t *testing.T) {
	inv := &fakeInventory{stock: map[string]int{"a": 5, "b": 1}}
	stock := stockOf(
		product.Product{ID: "a", Name: "Apples", Stock: 5},
		product.Product{ID: "b", Name: "Bread", Stock: 1},
	)

	err := NewLedger().Reserve(context.Background(), inv, stock, []Line{{"a", 2}, {"b", 3}})

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Empty(t, inv.calls)
	assert.Equal(t, 5, inv.stock["a"])
}

func TestLedger_Reserve_DecrementsAll(t *testing.T) {
	inv := &fakeInventory{stock: map[string]int{"a": 5, "b": 1}}
	stock := stockOf(
		product.Product{ID: "a", Stock: 5},
		product.Product{ID: "b", Stock: 1},
	)

	err := NewLedger().Reserve(context.Background(), inv, stock, []Line{{"a", 2}, {"b", 1}, {"a", 1}})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, inv.calls)
	assert.Equal(t, 2, inv.stock["a"])
	assert.Equal(t, 0, inv.stock["b"])
}

func TestLedger_Reserve_DecrementError(t *testing.T) {
	inv := &fakeInventory{stock: map[string]int{"a": 5}, err: errors.New("db down")}
	stock := stockOf(product.Product{ID: "a", Stock: 5})

	err := NewLedger().Reserve(context.Background(), inv, stock, []Line{{"a", 1}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrement a")
}
