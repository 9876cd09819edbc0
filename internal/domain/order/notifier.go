package order

import "context"

// Notifier is told about committed orders. Implementations must return
// quickly and handle their own failures; the order is already durable.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order)
}

type nopNotifier struct{}

func (nopNotifier) OrderPlaced(context.Context, *Order) {}
