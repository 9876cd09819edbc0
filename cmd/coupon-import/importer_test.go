package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
)

type fakeUpserter struct {
	mu      sync.Mutex
	coupons map[string]coupon.Coupon
}

func (f *fakeUpserter) Upsert(_ context.Context, c coupon.Coupon) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.coupons == nil {
		f.coupons = make(map[string]coupon.Coupon)
	}
	f.coupons[c.Code] = c
	return nil
}

func writeGzip(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    coupon.Coupon
		wantErr bool
	}{
		{
			name: "percentage",
			line: "save10,percentage,10",
			want: coupon.Coupon{Code: "SAVE10", DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(10)},
		},
		{
			name: "fixed with max uses",
			line: " FLAT50 , FIXED , 50.00 , 25 ",
			want: coupon.Coupon{Code: "FLAT50", DiscountType: coupon.DiscountFixed, Value: decimal.NewFromInt(50), MaxUses: 25},
		},
		{name: "too few fields", line: "SAVE10,percentage", wantErr: true},
		{name: "bad type", line: "SAVE10,bogo,10", wantErr: true},
		{name: "bad value", line: "SAVE10,fixed,ten", wantErr: true},
		{name: "zero value", line: "SAVE10,fixed,0", wantErr: true},
		{name: "percentage over 100", line: "SAVE10,percentage,101", wantErr: true},
		{name: "short code", line: "AB,fixed,5", wantErr: true},
		{name: "code with symbols", line: "SAVE-10,fixed,5", wantErr: true},
		{name: "negative max uses", line: "SAVE10,fixed,5,-1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Code, got.Code)
			assert.Equal(t, tt.want.DiscountType, got.DiscountType)
			assert.True(t, tt.want.Value.Equal(got.Value))
			assert.Equal(t, tt.want.MaxUses, got.MaxUses)
			assert.True(t, got.Active)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestParseLine_StableID(t *testing.T) {
	a, err := parseLine("SAVE10,percentage,10")
	require.NoError(t, err)
	b, err := parseLine("save10,fixed,5")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
}

func TestImporter_Run(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGzip(t, dir, "a.gz",
			"# code,type,value,max_uses",
			"SAVE10,percentage,10",
			"SHARED1,fixed,20",
			"broken line",
		),
		writeGzip(t, dir, "b.gz",
			"FLAT50,fixed,50,100",
			"shared1,percentage,5",
			"",
		),
		writeGzip(t, dir, "c.gz",
			"ONLYC,percentage,15",
			"SHARED2,fixed,1",
			"SHARED2,fixed,2",
		),
	}

	store := &fakeUpserter{}
	im := NewImporter(Config{Capacity: 100}, zap.NewNop(), store)

	stats, err := im.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Duplicates)
	assert.Equal(t, int64(1), stats.Invalid)
	assert.Equal(t, int64(5), stats.Imported)

	assert.Contains(t, store.coupons, "SAVE10")
	assert.Contains(t, store.coupons, "FLAT50")
	assert.Contains(t, store.coupons, "ONLYC")
	// Repeated within one file is not ambiguous: the later line wins.
	require.Contains(t, store.coupons, "SHARED2")
	assert.True(t, decimal.NewFromInt(2).Equal(store.coupons["SHARED2"].Value))
	assert.NotContains(t, store.coupons, "SHARED1")
	assert.Equal(t, 100, store.coupons["FLAT50"].MaxUses)
}

func TestImporter_MissingFile(t *testing.T) {
	im := NewImporter(Config{}, zap.NewNop(), &fakeUpserter{})
	_, err := im.Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing.gz")})
	require.Error(t, err)
}
