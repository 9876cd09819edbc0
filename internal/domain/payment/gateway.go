package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrGatewayUnavailable is returned when the payment gateway cannot be reached
// or answers with an error.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// GatewayOrder is the gateway's reference for a pending payment.
type GatewayOrder struct {
	ID       string
	Currency string
	// Amount in major currency units.
	Amount decimal.Decimal
}

// Gateway creates payment orders ahead of checkout.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*GatewayOrder, error)
}

// MinorUnits converts amount in major units to the smallest currency unit,
// rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
