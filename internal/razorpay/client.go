// Package razorpay creates payment orders on the Razorpay REST API.
package razorpay

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/bazaar-checkout/internal/domain/payment"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.razorpay.com"

var _ payment.Gateway = (*Client)(nil)

// Config holds client credentials and transport settings.
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// Client implements payment.Gateway.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTracerProvider instruments outgoing requests with tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cl *Client) {
		cl.http.Transport = otelhttp.NewTransport(cl.http.Transport, otelhttp.WithTracerProvider(tp))
	}
}

// New creates a Client. Requests time out after cfg.Timeout (10s when zero).
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: http.DefaultTransport,
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateOrder registers an auto-captured order for amount (in major units)
// and returns the gateway's order reference. Transport failures and non-2xx
// answers wrap payment.ErrGatewayUnavailable.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*payment.GatewayOrder, error) {
	minor := payment.MinorUnits(amount)
	if minor <= 0 {
		return nil, errors.Errorf("amount %s is below the smallest currency unit", amount)
	}
	if currency == "" {
		currency = "INR"
	}

	body := encodeOrderRequest(minor, currency, "receipt_order_"+strconv.FormatInt(c.now().UnixMilli(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(payment.ErrGatewayUnavailable, "send: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrapf(payment.ErrGatewayUnavailable, "read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		desc := decodeErrorDescription(raw)
		return nil, errors.Wrapf(payment.ErrGatewayUnavailable, "status %d: %s", resp.StatusCode, desc)
	}

	o, err := decodeOrder(raw)
	if err != nil {
		return nil, errors.Wrapf(payment.ErrGatewayUnavailable, "decode order: %v", err)
	}
	return o, nil
}

func encodeOrderRequest(amount int64, currency, receipt string) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) { e.Int64(amount) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(currency) })
		e.Field("receipt", func(e *jx.Encoder) { e.Str(receipt) })
		e.Field("payment_capture", func(e *jx.Encoder) { e.Int(1) })
	})
	return e.Bytes()
}

func decodeOrder(raw []byte) (*payment.GatewayOrder, error) {
	var (
		o     payment.GatewayOrder
		minor int64
	)
	err := jx.DecodeBytes(raw).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			o.ID, err = d.Str()
		case "currency":
			o.Currency, err = d.Str()
		case "amount":
			minor, err = d.Int64()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if o.ID == "" {
		return nil, errors.New("missing order id")
	}
	o.Amount = decimal.New(minor, -2)
	return &o, nil
}

// decodeErrorDescription extracts error.description from a gateway error
// body, falling back to the raw body.
func decodeErrorDescription(raw []byte) string {
	var desc string
	err := jx.DecodeBytes(raw).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "error" {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != "description" {
				return d.Skip()
			}
			v, err := d.Str()
			desc = v
			return err
		})
	})
	if err != nil || desc == "" {
		return strings.TrimSpace(string(raw))
	}
	return desc
}
