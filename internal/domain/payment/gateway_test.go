package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{amount: "499.5", want: 49950},
		{amount: "10", want: 1000},
		{amount: "0.01", want: 1},
		{amount: "0.005", want: 1},
		{amount: "0.004", want: 0},
		{amount: "12.345", want: 1235},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, MinorUnits(decimal.RequireFromString(tt.amount)))
		})
	}
}
