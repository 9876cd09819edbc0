package razorpay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bazaar-checkout/internal/domain/payment"
)

func TestClient_CreateOrder(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		got = map[string]any{}
		require.NoError(t, jx.DecodeBytes(raw).ObjBytes(func(d *jx.Decoder, key []byte) error {
			switch d.Next() {
			case jx.Number:
				n, err := d.Int64()
				got[string(key)] = n
				return err
			default:
				s, err := d.Str()
				got[string(key)] = s
				return err
			}
		}))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_9A","entity":"order","amount":49950,"currency":"INR","receipt":"r","notes":[]}`))
	}))
	defer srv.Close()

	c := New(Config{KeyID: "rzp_key", KeySecret: "rzp_secret", BaseURL: srv.URL + "/"})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	o, err := c.CreateOrder(context.Background(), decimal.RequireFromString("499.499"), "")
	require.NoError(t, err)

	assert.Equal(t, "order_9A", o.ID)
	assert.Equal(t, "INR", o.Currency)
	assert.True(t, decimal.RequireFromString("499.50").Equal(o.Amount))

	assert.Equal(t, int64(49950), got["amount"])
	assert.Equal(t, "INR", got["currency"])
	assert.Equal(t, int64(1), got["payment_capture"])
	assert.Equal(t, "receipt_order_1700000000000", got["receipt"])
}

func TestClient_CreateOrderFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "gateway error",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":"BAD_REQUEST_ERROR","description":"Authentication failed"}}`,
			wantMsg: "Authentication failed",
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			body:    `upstream down`,
			wantMsg: "upstream down",
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"id":`,
			wantMsg: "decode order",
		},
		{
			name:    "missing id",
			status:  http.StatusOK,
			body:    `{"amount":100}`,
			wantMsg: "missing order id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(Config{BaseURL: srv.URL}).CreateOrder(context.Background(), decimal.NewFromInt(10), "INR")
			require.ErrorIs(t, err, payment.ErrGatewayUnavailable)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.CreateOrder(context.Background(), decimal.NewFromInt(10), "INR")
	require.ErrorIs(t, err, payment.ErrGatewayUnavailable)
}

func TestClient_RejectsNonPositiveAmount(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:0"})
	for _, amount := range []string{"0", "-5", "0.004"} {
		t.Run(amount, func(t *testing.T) {
			_, err := c.CreateOrder(context.Background(), decimal.RequireFromString(amount), "INR")
			require.Error(t, err)
			assert.NotErrorIs(t, err, payment.ErrGatewayUnavailable)
		})
	}
}
