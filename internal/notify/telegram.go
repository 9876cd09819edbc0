package notify

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/bazaar-checkout/internal/domain/order"
)

// TelegramConfig configures the admin alert bot.
type TelegramConfig struct {
	BotToken    string
	AdminChatID string
	BaseURL     string
	Currency    string
}

// Telegram posts a short alert about every new order to the admin chat.
type Telegram struct {
	cfg  TelegramConfig
	http *http.Client
}

var _ Channel = (*Telegram)(nil)

// NewTelegram creates the Telegram channel with an instrumented HTTP client.
func NewTelegram(cfg TelegramConfig, tp trace.TracerProvider) *Telegram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Telegram{
		cfg: cfg,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithTracerProvider(tp)),
		},
	}
}

// Name implements Channel.
func (t *Telegram) Name() string { return "telegram" }

// Notify implements Channel.
func (t *Telegram) Notify(ctx context.Context, o *order.Order) error {
	return t.SendMessage(ctx, t.cfg.AdminChatID, FormatNewOrder(o, t.cfg.Currency))
}

// SendMessage posts an HTML formatted text to chatID.
func (t *Telegram) SendMessage(ctx context.Context, chatID, text string) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("chat_id", func(e *jx.Encoder) { e.Str(chatID) })
		e.Field("text", func(e *jx.Encoder) { e.Str(text) })
		e.Field("parse_mode", func(e *jx.Encoder) { e.Str("HTML") })
	})

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.BaseURL, t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(e.Bytes()))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// FormatNewOrder renders the admin alert for o.
func FormatNewOrder(o *order.Order, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 <b>New order</b> #%s\n", html.EscapeString(o.ID))
	fmt.Fprintf(&b, "Store: %s\n", html.EscapeString(o.StoreName))
	fmt.Fprintf(&b, "Customer: %s, %s\n\n", html.EscapeString(o.CustomerName), html.EscapeString(o.ShippingAddress.Mobile))

	for i, it := range o.Items {
		fmt.Fprintf(&b, "%d. <b>%s</b>\n   %d %s x %s = %s\n",
			i+1,
			html.EscapeString(it.Name),
			it.Quantity,
			html.EscapeString(it.Unit),
			formatMoney(it.Price, currency),
			formatMoney(it.LineTotal(), currency),
		)
	}
	if c := o.Coupon; c != nil {
		fmt.Fprintf(&b, "\nCoupon: %s (-%s)", html.EscapeString(c.Code), formatMoney(c.DiscountAmount, currency))
	}
	fmt.Fprintf(&b, "\n<b>Total:</b> %s\n", formatMoney(o.TotalPrice, currency))
	fmt.Fprintf(&b, "Payment: %s", html.EscapeString(string(o.PaymentMethod)))
	return b.String()
}
