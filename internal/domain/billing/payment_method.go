package billing

import (
	"encoding/json"
	"fmt"

	"github.com/paycore/backend/internal/domain/shared"
)

// PaymentMethodKind is the instrument family of a payment method
type PaymentMethodKind string

const (
	PaymentMethodCard         PaymentMethodKind = "card"
	PaymentMethodBankTransfer PaymentMethodKind = "bank_transfer"
	PaymentMethodWallet       PaymentMethodKind = "wallet"
	PaymentMethodCrypto       PaymentMethodKind = "crypto"
)

// IsValid checks if the kind is one of the known kinds
func (k PaymentMethodKind) IsValid() bool {
	switch k {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodWallet, PaymentMethodCrypto:
		return true
	}
	return false
}

// String returns the string representation
func (k PaymentMethodKind) String() string {
	return string(k)
}

// PaymentMethod describes the instrument a payment was processed with.
// It is purely descriptive; no credentials are held.
type PaymentMethod struct {
	kind     PaymentMethodKind
	lastFour string
	brand    string
	expMonth int
	expYear  int
}

// PaymentMethodOption sets an optional attribute of a PaymentMethod
type PaymentMethodOption func(*PaymentMethod)

// WithLastFour sets the last four digits of the instrument
func WithLastFour(lastFour string) PaymentMethodOption {
	return func(m *PaymentMethod) { m.lastFour = lastFour }
}

// WithBrand sets the card or wallet brand
func WithBrand(brand string) PaymentMethodOption {
	return func(m *PaymentMethod) { m.brand = brand }
}

// WithExpiry sets the expiry month (1..12) and year
func WithExpiry(month, year int) PaymentMethodOption {
	return func(m *PaymentMethod) {
		m.expMonth = month
		m.expYear = year
	}
}

// NewPaymentMethod creates a validated payment method
func NewPaymentMethod(kind PaymentMethodKind, opts ...PaymentMethodOption) (PaymentMethod, error) {
	m := PaymentMethod{kind: kind}
	for _, opt := range opts {
		opt(&m)
	}
	if err := m.validate(); err != nil {
		return PaymentMethod{}, err
	}
	return m, nil
}

func (m PaymentMethod) validate() error {
	if !m.kind.IsValid() {
		return shared.NewDomainError(CodeInvalidPaymentMethod, fmt.Sprintf("Unknown payment method type %q", m.kind))
	}
	if m.lastFour != "" {
		if len(m.lastFour) != 4 {
			return shared.NewDomainError(CodeInvalidPaymentMethod, "Last four must be exactly 4 digits")
		}
		for _, r := range m.lastFour {
			if r < '0' || r > '9' {
				return shared.NewDomainError(CodeInvalidPaymentMethod, "Last four must be exactly 4 digits")
			}
		}
	}
	if m.expMonth != 0 && (m.expMonth < 1 || m.expMonth > 12) {
		return shared.NewDomainError(CodeInvalidPaymentMethod, "Expiry month must be between 1 and 12")
	}
	if m.expYear < 0 {
		return shared.NewDomainError(CodeInvalidPaymentMethod, "Expiry year cannot be negative")
	}
	return nil
}

// Kind returns the instrument family
func (m PaymentMethod) Kind() PaymentMethodKind {
	return m.kind
}

// LastFour returns the last four digits, if known
func (m PaymentMethod) LastFour() (string, bool) {
	return m.lastFour, m.lastFour != ""
}

// Brand returns the brand, if known
func (m PaymentMethod) Brand() (string, bool) {
	return m.brand, m.brand != ""
}

// ExpMonth returns the expiry month, if known
func (m PaymentMethod) ExpMonth() (int, bool) {
	return m.expMonth, m.expMonth != 0
}

// ExpYear returns the expiry year, if known
func (m PaymentMethod) ExpYear() (int, bool) {
	return m.expYear, m.expYear != 0
}

// Equals compares two payment methods by value
func (m PaymentMethod) Equals(other PaymentMethod) bool {
	return m == other
}

type paymentMethodJSON struct {
	Type     PaymentMethodKind `json:"type"`
	LastFour string            `json:"last_four,omitempty"`
	Brand    string            `json:"brand,omitempty"`
	ExpMonth int               `json:"exp_month,omitempty"`
	ExpYear  int               `json:"exp_year,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (m PaymentMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(paymentMethodJSON{
		Type:     m.kind,
		LastFour: m.lastFour,
		Brand:    m.brand,
		ExpMonth: m.expMonth,
		ExpYear:  m.expYear,
	})
}

// UnmarshalJSON implements json.Unmarshaler with validation
func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	var v paymentMethodJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewPaymentMethod(v.Type,
		WithLastFour(v.LastFour),
		WithBrand(v.Brand),
		WithExpiry(v.ExpMonth, v.ExpYear),
	)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
