package order

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar-checkout/internal/domain/auth"
	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/payment"
)

var (
	pinCodePattern      = regexp.MustCompile(`^\d{6}$`)
	mobilePattern       = regexp.MustCompile(`^\+?\d{10,15}$`)
	deliveryCodePattern = regexp.MustCompile(`^\d{6}$`)
)

// CartItem is a client cart line as submitted at checkout.
type CartItem struct {
	ProductID string
	Name      string
	Image     string
	Price     decimal.Decimal
	Quantity  int
	Unit      string
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Customer        auth.Principal
	Items           []CartItem
	ShippingAddress ShippingAddress
	PaymentMethod   payment.Method
	TotalPrice      decimal.Decimal
	Coupon          *coupon.Ref
	// Payment carries gateway references. For Razorpay the three fields are
	// checked by the payment verifier rather than here.
	Payment payment.Assertion
}

// Validate checks the request shape. It never touches storage.
func (r *PlaceOrderRequest) Validate() error {
	if r.Customer.UserID == "" {
		return &ValidationError{Field: "customer", Reason: "is required"}
	}
	if len(r.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "order must contain at least one item"}
	}
	for i, it := range r.Items {
		if err := it.validate(i); err != nil {
			return err
		}
	}
	if err := r.ShippingAddress.validate(); err != nil {
		return err
	}

	if !r.PaymentMethod.Valid() {
		return &ValidationError{Field: "paymentMethod", Reason: "invalid payment method"}
	}
	if r.PaymentMethod == payment.MethodUPIQR && strings.TrimSpace(r.Payment.TransactionID) == "" {
		return &ValidationError{Field: "transactionId", Reason: "is required for this payment method"}
	}
	if !r.TotalPrice.IsPositive() {
		return &ValidationError{Field: "totalPrice", Reason: "must be a positive number"}
	}

	if r.Coupon != nil {
		if r.Coupon.ID == "" {
			return &ValidationError{Field: "appliedCoupon.id", Reason: "is required"}
		}
		if strings.TrimSpace(r.Coupon.Code) == "" {
			return &ValidationError{Field: "appliedCoupon.code", Reason: "is required"}
		}
	}
	return nil
}

func (it CartItem) validate(i int) error {
	field := func(name string) string {
		return "items[" + strconv.Itoa(i) + "]." + name
	}
	switch {
	case strings.TrimSpace(it.ProductID) == "":
		return &ValidationError{Field: field("product"), Reason: "product id is required"}
	case strings.TrimSpace(it.Name) == "":
		return &ValidationError{Field: field("name"), Reason: "is required"}
	case !isURL(it.Image):
		return &ValidationError{Field: field("image"), Reason: "must be a valid URL"}
	case !it.Price.IsPositive():
		return &ValidationError{Field: field("price"), Reason: "must be positive"}
	case it.Quantity < 1:
		return &ValidationError{Field: field("quantity"), Reason: "must be at least 1"}
	case strings.TrimSpace(it.Unit) == "":
		return &ValidationError{Field: field("unit"), Reason: "is required"}
	}
	return nil
}

func (a ShippingAddress) validate() error {
	switch {
	case strings.TrimSpace(a.HouseNo) == "":
		return &ValidationError{Field: "shippingAddress.houseNo", Reason: "House No. is required"}
	case strings.TrimSpace(a.City) == "":
		return &ValidationError{Field: "shippingAddress.city", Reason: "City is required"}
	case strings.TrimSpace(a.State) == "":
		return &ValidationError{Field: "shippingAddress.state", Reason: "State is required"}
	case !pinCodePattern.MatchString(a.PinCode):
		return &ValidationError{Field: "shippingAddress.pinCode", Reason: "Pin Code must be 6 digits"}
	case !mobilePattern.MatchString(a.Mobile):
		return &ValidationError{Field: "shippingAddress.mobile", Reason: "Mobile number is invalid"}
	}
	return nil
}

// ValidateDeliveryCode checks that code is exactly six digits.
func ValidateDeliveryCode(code string) error {
	if !deliveryCodePattern.MatchString(code) {
		return &ValidationError{Field: "otp", Reason: "OTP must be 6 digits"}
	}
	return nil
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
