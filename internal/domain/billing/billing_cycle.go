package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/paycore/backend/internal/domain/shared"
)

// BillingCycle is the fixed length of a subscription period. Periods are
// counted in whole days, not calendar months or years.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "MONTHLY"
	BillingCycleYearly  BillingCycle = "YEARLY"
	BillingCycleWeekly  BillingCycle = "WEEKLY"
)

// ParseBillingCycle converts a case-insensitive name into a BillingCycle
func ParseBillingCycle(s string) (BillingCycle, error) {
	c := BillingCycle(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", shared.NewDomainError(CodeInvalidBillingCycle, fmt.Sprintf("Unknown billing cycle %q", s))
	}
	return c, nil
}

// IsValid checks if the cycle is valid
func (c BillingCycle) IsValid() bool {
	return c.Days() > 0
}

// Days returns the period length in days, 0 for an unknown cycle
func (c BillingCycle) Days() int {
	switch c {
	case BillingCycleMonthly:
		return 30
	case BillingCycleYearly:
		return 365
	case BillingCycleWeekly:
		return 7
	}
	return 0
}

// PeriodEnd returns the end of a period that begins on start
func (c BillingCycle) PeriodEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, c.Days())
}

// String returns the string representation
func (c BillingCycle) String() string {
	return string(c)
}
