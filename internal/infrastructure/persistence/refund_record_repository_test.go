package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/backend/internal/domain/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormRefundRecordRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRefundRecordRepository(db.DB)
	ctx := context.Background()

	paymentID := billing.PaymentID("pay_abc")
	event := billing.NewPaymentRefundedEvent(paymentID, dec("30"), testNow)
	first := billing.NewRefundRecordFromEvent(event)
	second := billing.NewRefundRecord(uuid.New(), paymentID, dec("20"), testNow.Add(time.Minute))

	require.NoError(t, repo.Record(ctx, first))
	require.NoError(t, repo.Record(ctx, second))
	// redelivered event
	require.NoError(t, repo.Record(ctx, billing.NewRefundRecordFromEvent(event)))

	records, err := repo.ListByPayment(ctx, paymentID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, event.EventID(), records[0].ID)
	assert.True(t, records[0].Amount.Equal(dec("30")))
	assert.True(t, records[1].Amount.Equal(dec("20")))

	none, err := repo.ListByPayment(ctx, billing.PaymentID("pay_other"))
	require.NoError(t, err)
	assert.Empty(t, none)
}
