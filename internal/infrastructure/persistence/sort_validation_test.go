package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"DESC uppercase returns DESC", "DESC", "DESC"},
		{"invalid value returns DESC", "sideways", "DESC"},
		{"sql injection attempt returns DESC", "ASC; DROP TABLE payments;--", "DESC"},
		{"whitespace around ASC returns ASC", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		allowed  map[string]bool
		expected string
	}{
		{"empty string returns default", "", PaymentSortFields, "created_at"},
		{"payment amount", "amount", PaymentSortFields, "amount"},
		{"subscription period end", "current_period_end", SubscriptionSortFields, "current_period_end"},
		{"period end is not a payment column", "current_period_end", PaymentSortFields, "created_at"},
		{"sql injection attempt returns default", "amount; DROP TABLE payments;--", PaymentSortFields, "created_at"},
		{"case sensitive", "AMOUNT", PaymentSortFields, "created_at"},
		{"whitespace around valid field", "  status ", SubscriptionSortFields, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, tt.allowed, "created_at"))
		})
	}
}
