package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrVerificationFailed is returned when a gateway payment assertion cannot
// be authenticated.
var ErrVerificationFailed = errors.New("payment verification failed")

// Assertion is the client's proof that the gateway captured a payment.
type Assertion struct {
	GatewayOrderID string
	TransactionID  string
	Signature      string
}

// Verifier authenticates gateway payment assertions.
type Verifier interface {
	Verify(ctx context.Context, a Assertion) error
}

// SignatureVerifier checks hex(HMAC-SHA256(secret, orderID + "|" + transactionID)).
type SignatureVerifier struct {
	secret []byte
}

var _ Verifier = (*SignatureVerifier)(nil)

// NewSignatureVerifier creates a verifier keyed by the gateway secret.
func NewSignatureVerifier(secret []byte) *SignatureVerifier {
	return &SignatureVerifier{secret: secret}
}

// Sign returns the expected signature for the pair.
func (v *SignatureVerifier) Sign(gatewayOrderID, transactionID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(gatewayOrderID + "|" + transactionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify rejects missing fields, a cancelled context and any signature that
// differs from the expected one.
func (v *SignatureVerifier) Verify(ctx context.Context, a Assertion) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(ErrVerificationFailed, err.Error())
	}
	if len(v.secret) == 0 {
		return errors.Wrap(ErrVerificationFailed, "gateway secret not configured")
	}
	if a.GatewayOrderID == "" || a.TransactionID == "" || a.Signature == "" {
		return errors.Wrap(ErrVerificationFailed, "missing gateway order id, transaction id or signature")
	}

	expected := v.Sign(a.GatewayOrderID, a.TransactionID)
	if !hmac.Equal([]byte(expected), []byte(a.Signature)) {
		return errors.Wrap(ErrVerificationFailed, "signature mismatch")
	}
	return nil
}
