package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/wneessen/go-mail"

	"github.com/xenking/bazaar-checkout/internal/domain/order"
)

//go:embed templates/*.html
var templates embed.FS

// SMTPConfig configures the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// RootCAs verifies the relay certificate. Nil uses the system pool.
	RootCAs *x509.CertPool
}

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends email messages.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// SMTPMailer sends mail through an SMTP relay. Port 465 uses implicit TLS,
// any other port upgrades with STARTTLS when the relay offers it.
type SMTPMailer struct {
	cfg SMTPConfig
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}
}

// Send delivers m. The context deadline bounds the whole SMTP session.
func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return errors.Wrap(err, "from")
	}
	if err := msg.To(m.To); err != nil {
		return errors.Wrap(err, "to")
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, m.HTML)

	c, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return errors.Wrap(err, "smtp client")
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrap(err, "send mail")
	}
	return nil
}

func (s *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSConfig(&tls.Config{
			ServerName: s.cfg.Host,
			RootCAs:    s.cfg.RootCAs,
			MinVersion: tls.VersionTLS12,
		}),
	}
	if s.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

// EmailConfig configures the customer confirmation email.
type EmailConfig struct {
	Brand       string
	FrontendURL string
	Currency    string
}

// Email sends the order confirmation to the customer.
type Email struct {
	cfg    EmailConfig
	mailer Mailer
	tmpl   *template.Template
}

var _ Channel = (*Email)(nil)

// NewEmail creates the confirmation email channel.
func NewEmail(cfg EmailConfig, mailer Mailer) (*Email, error) {
	if cfg.Brand == "" {
		cfg.Brand = "Bazaar"
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	tmpl, err := template.New("").
		Funcs(template.FuncMap{
			"money": func(d decimal.Decimal) string { return formatMoney(d, cfg.Currency) },
		}).
		ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	return &Email{cfg: cfg, mailer: mailer, tmpl: tmpl}, nil
}

// Name implements Channel.
func (e *Email) Name() string { return "email" }

// Notify implements Channel. Orders without a customer email are skipped.
func (e *Email) Notify(ctx context.Context, o *order.Order) error {
	if o.CustomerEmail == "" {
		return nil
	}
	m, err := e.Render(o)
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, m)
}

// Render builds the confirmation message for o.
func (e *Email) Render(o *order.Order) (Message, error) {
	var buf bytes.Buffer
	err := e.tmpl.ExecuteTemplate(&buf, "order_confirmation.html", struct {
		Brand       string
		Order       *order.Order
		TrackingURL string
	}{
		Brand:       e.cfg.Brand,
		Order:       o,
		TrackingURL: e.cfg.FrontendURL + "/my-orders/" + o.ID,
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "render confirmation")
	}
	return Message{
		To:      o.CustomerEmail,
		Subject: fmt.Sprintf("%s Order Confirmation #%s", e.cfg.Brand, o.ID),
		HTML:    buf.String(),
	}, nil
}

func formatMoney(d decimal.Decimal, currency string) string {
	switch currency {
	case "", "INR":
		return "₹" + d.StringFixed(2)
	default:
		return d.StringFixed(2) + " " + currency
	}
}
