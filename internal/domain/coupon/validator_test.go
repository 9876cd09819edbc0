package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	coupon    *Coupon
	err       error
	redeemErr error
	redeemed  []string
}

func (m *mockCouponRepo) FindByID(_ context.Context, _ string) (*Coupon, error) {
	return m.coupon, m.err
}

func (m *mockCouponRepo) Redeem(_ context.Context, id, userID string) error {
	m.redeemed = append(m.redeemed, id+":"+userID)
	return m.redeemErr
}

func TestRedeemer_Quote(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	oneItem := []Item{{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 1}}

	tests := []struct {
		name       string
		coupon     *Coupon
		repoErr    error
		code       string
		items      []Item
		wantAmount decimal.Decimal
		wantErr    error
	}{
		{
			name:       "percentage coupon",
			coupon:     &Coupon{ID: "c1", Code: "SAVE10", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(10), Active: true},
			code:       "SAVE10",
			items:      oneItem,
			wantAmount: decimal.NewFromInt(10),
		},
		{
			name:       "code is matched case-insensitively",
			coupon:     &Coupon{ID: "c1", Code: "SAVE10", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(10), Active: true},
			code:       " save10 ",
			items:      oneItem,
			wantAmount: decimal.NewFromInt(10),
		},
		{
			name:    "unknown coupon",
			repoErr: ErrNotFound,
			code:    "BOGUS",
			items:   oneItem,
			wantErr: ErrInvalidCoupon,
		},
		{
			name:    "code mismatch",
			coupon:  &Coupon{ID: "c1", Code: "SAVE10", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), Active: true},
			code:    "SAVE20",
			items:   oneItem,
			wantErr: ErrInvalidCoupon,
		},
		{
			name:    "inactive coupon",
			coupon:  &Coupon{ID: "c1", Code: "OFF", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5)},
			code:    "OFF",
			items:   oneItem,
			wantErr: ErrInvalidCoupon,
		},
		{
			name:    "min items not met",
			coupon:  &Coupon{ID: "c1", Code: "MIN3", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), MinItems: 3, Active: true},
			code:    "MIN3",
			items:   oneItem,
			wantErr: ErrInvalidCoupon,
		},
		{
			name:    "expired",
			coupon:  &Coupon{ID: "c1", Code: "OLD", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), ValidUntil: &pastTime, Active: true},
			code:    "OLD",
			items:   oneItem,
			wantErr: ErrCouponExpired,
		},
		{
			name:    "not yet valid",
			coupon:  &Coupon{ID: "c1", Code: "SOON", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), ValidFrom: &futureTime, Active: true},
			code:    "SOON",
			items:   oneItem,
			wantErr: ErrCouponExpired,
		},
		{
			name:    "usage limit reached",
			coupon:  &Coupon{ID: "c1", Code: "LIMITED", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), MaxUses: 2, UsedCount: 2, Active: true},
			code:    "LIMITED",
			items:   oneItem,
			wantErr: ErrCouponUsageLimitReached,
		},
		{
			name:    "already redeemed by customer",
			coupon:  &Coupon{ID: "c1", Code: "ONCE", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), UsedCount: 1, UsedBy: []string{"u1"}, Active: true},
			code:    "ONCE",
			items:   oneItem,
			wantErr: ErrAlreadyRedeemed,
		},
		{
			name:       "unlimited uses",
			coupon:     &Coupon{ID: "c1", Code: "ALWAYS", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), UsedCount: 9999, UsedBy: []string{"u2"}, Active: true},
			code:       "ALWAYS",
			items:      oneItem,
			wantAmount: decimal.NewFromInt(5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCouponRepo{coupon: tt.coupon, err: tt.repoErr}
			r := NewRedeemer()
			r.now = func() time.Time { return fixedNow }

			c, got, err := r.Quote(context.Background(), repo, Ref{ID: "c1", Code: tt.code}, "u1", tt.items)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, c)
			assert.True(t, tt.wantAmount.Equal(got.Amount),
				"expected amount %s, got %s", tt.wantAmount, got.Amount)
			assert.Empty(t, repo.redeemed, "quote must not redeem")
		})
	}
}

func TestRedeemer_QuoteLookupError(t *testing.T) {
	repo := &mockCouponRepo{err: errors.New("connection reset")}

	_, _, err := NewRedeemer().Quote(context.Background(), repo, Ref{ID: "c1", Code: "X"}, "u1", nil)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCoupon)
	assert.Contains(t, err.Error(), "lookup coupon")
}

func TestRedeemer_Redeem(t *testing.T) {
	repo := &mockCouponRepo{}

	require.NoError(t, NewRedeemer().Redeem(context.Background(), repo, "c1", "u1"))
	assert.Equal(t, []string{"c1:u1"}, repo.redeemed)

	repo.redeemErr = errors.New("db error")
	err := NewRedeemer().Redeem(context.Background(), repo, "c1", "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redeem coupon")
}
