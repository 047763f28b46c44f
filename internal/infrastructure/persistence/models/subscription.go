package models

import (
	"time"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SubscriptionModel is the persistence model for the Subscription aggregate
type SubscriptionModel struct {
	ID                 string          `gorm:"type:varchar(40);primaryKey"`
	CustomerID         string          `gorm:"type:varchar(100);not null;index:idx_subscriptions_customer"`
	PlanID             string          `gorm:"type:varchar(100);not null;index:idx_subscriptions_plan"`
	Status             string          `gorm:"type:varchar(30);not null;index:idx_subscriptions_due,priority:1"`
	CurrentPeriodStart time.Time       `gorm:"type:date;not null"`
	CurrentPeriodEnd   time.Time       `gorm:"type:date;not null;index:idx_subscriptions_due,priority:2"`
	BillingCycle       string          `gorm:"type:varchar(20);not null"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Currency           string          `gorm:"type:varchar(3);not null"`
	CancelAtPeriodEnd  bool            `gorm:"not null;default:false"`
	CancelledAt        *time.Time
	VersionedModel
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// SubscriptionModelFromSnapshot builds a row from the aggregate's snapshot
func SubscriptionModelFromSnapshot(s billing.SubscriptionSnapshot) *SubscriptionModel {
	return &SubscriptionModel{
		ID:                 s.ID.String(),
		CustomerID:         s.CustomerID,
		PlanID:             s.PlanID,
		Status:             s.Status.String(),
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		BillingCycle:       s.BillingCycle.String(),
		Amount:             s.Amount.Amount(),
		Currency:           s.Amount.Currency().String(),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CancelledAt:        s.CancelledAt,
		VersionedModel: VersionedModel{
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		},
	}
}

// ToDomain rehydrates the Subscription aggregate from the row
func (m *SubscriptionModel) ToDomain(clock shared.Clock) (*billing.Subscription, error) {
	currency, err := valueobject.ParseCurrency(m.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := valueobject.NewMoney(m.Amount, currency)
	if err != nil {
		return nil, err
	}
	return billing.RehydrateSubscription(billing.SubscriptionSnapshot{
		ID:                 billing.SubscriptionID(m.ID),
		CustomerID:         m.CustomerID,
		PlanID:             m.PlanID,
		Status:             billing.SubscriptionStatus(m.Status),
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		BillingCycle:       billing.BillingCycle(m.BillingCycle),
		Amount:             amount,
		CancelAtPeriodEnd:  m.CancelAtPeriodEnd,
		CancelledAt:        m.CancelledAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}, clock)
}

// UpdateColumns returns the mutable columns written by a versioned update
func (m *SubscriptionModel) UpdateColumns() map[string]any {
	return map[string]any{
		"status":               m.Status,
		"current_period_start": m.CurrentPeriodStart,
		"current_period_end":   m.CurrentPeriodEnd,
		"cancel_at_period_end": m.CancelAtPeriodEnd,
		"cancelled_at":         m.CancelledAt,
		"updated_at":           m.UpdatedAt,
	}
}
