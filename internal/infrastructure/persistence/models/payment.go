package models

import (
	"encoding/json"
	"fmt"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment aggregate
type PaymentModel struct {
	ID             string          `gorm:"type:varchar(40);primaryKey"`
	CustomerID     string          `gorm:"type:varchar(100);not null;index:idx_payments_customer"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	Status         string          `gorm:"type:varchar(30);not null;index:idx_payments_status"`
	PaymentMethod  []byte          `gorm:"type:jsonb"`
	Description    string          `gorm:"type:text"`
	Metadata       []byte          `gorm:"type:jsonb"`
	RefundedAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	FailureReason  string          `gorm:"type:text"`
	VersionedModel
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// PaymentModelFromSnapshot builds a row from the aggregate's snapshot
func PaymentModelFromSnapshot(s billing.PaymentSnapshot) (*PaymentModel, error) {
	m := &PaymentModel{
		ID:             s.ID.String(),
		CustomerID:     s.CustomerID,
		Amount:         s.Amount.Amount(),
		Currency:       s.Amount.Currency().String(),
		Status:         s.Status.String(),
		Description:    s.Description,
		RefundedAmount: s.RefundedAmount,
		FailureReason:  s.FailureReason,
		VersionedModel: VersionedModel{
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		},
	}
	if s.PaymentMethod != nil {
		data, err := json.Marshal(s.PaymentMethod)
		if err != nil {
			return nil, fmt.Errorf("marshal payment method: %w", err)
		}
		m.PaymentMethod = data
	}
	if len(s.Metadata) > 0 {
		data, err := json.Marshal(s.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal payment metadata: %w", err)
		}
		m.Metadata = data
	}
	return m, nil
}

// ToDomain rehydrates the Payment aggregate from the row
func (m *PaymentModel) ToDomain(clock shared.Clock) (*billing.Payment, error) {
	currency, err := valueobject.ParseCurrency(m.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := valueobject.NewMoney(m.Amount, currency)
	if err != nil {
		return nil, err
	}

	s := billing.PaymentSnapshot{
		ID:             billing.PaymentID(m.ID),
		CustomerID:     m.CustomerID,
		Amount:         amount,
		Status:         billing.PaymentStatus(m.Status),
		Description:    m.Description,
		RefundedAmount: m.RefundedAmount,
		FailureReason:  m.FailureReason,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if len(m.PaymentMethod) > 0 {
		var method billing.PaymentMethod
		if err := json.Unmarshal(m.PaymentMethod, &method); err != nil {
			return nil, fmt.Errorf("payment %s: decode payment method: %w", m.ID, err)
		}
		s.PaymentMethod = &method
	}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &s.Metadata); err != nil {
			return nil, fmt.Errorf("payment %s: decode metadata: %w", m.ID, err)
		}
	}
	return billing.RehydratePayment(s, clock)
}

// UpdateColumns returns the mutable columns written by a versioned update
func (m *PaymentModel) UpdateColumns() map[string]any {
	return map[string]any{
		"status":          m.Status,
		"payment_method":  m.PaymentMethod,
		"description":     m.Description,
		"metadata":        m.Metadata,
		"refunded_amount": m.RefundedAmount,
		"failure_reason":  m.FailureReason,
		"updated_at":      m.UpdatedAt,
	}
}
