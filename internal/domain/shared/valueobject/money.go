package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents a three-letter currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar (default)
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	NGN Currency = "NGN" // Nigerian Naira
	CNY Currency = "CNY" // Chinese Yuan
	JPY Currency = "JPY" // Japanese Yen
)

// DefaultCurrency is used when a caller does not name one
const DefaultCurrency = USD

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

var errEmptyCurrency = errors.New("currency cannot be empty")

// ParseCurrency normalizes and validates a currency code. Any three ASCII
// letters are accepted; the service does not maintain a currency catalogue.
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", errEmptyCurrency
	}
	if len(code) != 3 {
		return "", fmt.Errorf("currency code must be 3 letters, got %q", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("currency code must be 3 letters, got %q", code)
		}
	}
	return Currency(code), nil
}

// MaxAmountScale is the number of decimal places an amount may carry. Stored
// amounts use DECIMAL(20,4), so anything finer would be rounded on save.
const MaxAmountScale = 4

var errAmountScale = fmt.Errorf("amount cannot have more than %d decimal places", MaxAmountScale)

// HasValidScale reports whether d fits in MaxAmountScale decimal places.
// Trailing zeros do not count: 1.50000 is accepted.
func HasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MaxAmountScale))
}

// Money is an immutable amount in a single currency.
// Values of different currencies are never combined implicitly.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	c, err := ParseCurrency(string(currency))
	if err != nil {
		return Money{}, err
	}
	if !HasValidScale(amount) {
		return Money{}, errAmountScale
	}
	return Money{
		amount:   amount,
		currency: c,
	}, nil
}

// MustNewMoney is NewMoney for literals known to be valid; it panics otherwise
func MustNewMoney(amount decimal.Decimal, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyFromString creates Money from a decimal string such as "100.00"
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// WithAmount returns Money in the same currency with a different amount
func (m Money) WithAmount(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: m.currency}
}

// Add returns a new Money with the sum of both amounts
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{
		amount:   m.amount.Add(other.amount),
		currency: m.currency,
	}, nil
}

// Subtract returns a new Money with the difference
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{
		amount:   m.amount.Sub(other.amount),
		currency: m.currency,
	}, nil
}

// Equals reports exact equality of amount and currency. 100 and 100.00 are equal.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	return m.amount.LessThan(other.amount), nil
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	return m.amount.GreaterThan(other.amount), nil
}

// MinorUnits returns the number of decimal places the currency is quoted in
func (c Currency) MinorUnits() int32 {
	switch c {
	case JPY, "KRW", "VND", "CLP", "ISK", "UGX", "XAF", "XOF":
		return 0
	case "BHD", "JOD", "KWD", "OMR", "TND", "IQD", "LYD":
		return 3
	}
	return 2
}

// String returns a string representation of the Money. The amount is padded
// to the currency's minor units but never rounded.
func (m Money) String() string {
	places := m.currency.MinorUnits()
	if !m.amount.Equal(m.amount.Truncate(places)) {
		return fmt.Sprintf("%s %s", m.amount.String(), m.currency)
	}
	return fmt.Sprintf("%s %s", m.amount.StringFixed(places), m.currency)
}

// MarshalJSON implements json.Marshaler. The amount is written as a string
// so no precision is lost in transit.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.String(),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler and validates the currency
func (m *Money) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMoneyFromJSON(data)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMoneyFromJSON creates a Money from {"amount":"..","currency":".."}
func ParseMoneyFromJSON(data []byte) (Money, error) {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return Money{}, fmt.Errorf("failed to parse money JSON: %w", err)
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount: %w", err)
	}
	return NewMoney(amount, v.Currency)
}
