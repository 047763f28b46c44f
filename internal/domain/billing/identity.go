package billing

import (
	"fmt"
	"strings"

	"github.com/paycore/backend/internal/domain/shared"
)

const (
	paymentIDPrefix = "pay_"
	paymentIDHexLen = 24
)

// PaymentID identifies a payment: "pay_" followed by 24 hex characters
type PaymentID string

// NewPaymentID derives a payment id from the generator's next identifier
func NewPaymentID(ids shared.IDGenerator) PaymentID {
	raw := strings.ReplaceAll(ids.NewID(), "-", "")
	if len(raw) > paymentIDHexLen {
		raw = raw[:paymentIDHexLen]
	}
	return PaymentID(paymentIDPrefix + raw)
}

// ParsePaymentID validates the textual form of a payment id
func ParsePaymentID(s string) (PaymentID, error) {
	if !strings.HasPrefix(s, paymentIDPrefix) || len(s) == len(paymentIDPrefix) {
		return "", shared.NewDomainError(CodeInvalidPaymentID, fmt.Sprintf("Invalid payment id %q", s))
	}
	return PaymentID(s), nil
}

// String returns the id as a string
func (id PaymentID) String() string {
	return string(id)
}

// SubscriptionID identifies a subscription. It is a plain unique string.
type SubscriptionID string

// NewSubscriptionID takes the generator's next identifier as is
func NewSubscriptionID(ids shared.IDGenerator) SubscriptionID {
	return SubscriptionID(ids.NewID())
}

// String returns the id as a string
func (id SubscriptionID) String() string {
	return string(id)
}
