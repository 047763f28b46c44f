package persistence

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubscriptionRepo(t *testing.T) (*GormSubscriptionRepository, *Database) {
	db := setupTestDB(t)
	repo := NewGormSubscriptionRepository(db.DB, nil)
	repo.SetOutboxEventSaver(&txOutboxSaver{})
	return repo, db
}

func TestGormSubscriptionRepository_SaveAndLoad(t *testing.T) {
	repo, db := newSubscriptionRepo(t)
	ctx := context.Background()

	sub, err := newFactory().NewSubscription("cus_1", "plan_pro", usd("29.99"), billing.BillingCycleMonthly)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, sub, 0, sub.TakeEvents()...))
	assert.Equal(t, int64(1), countOutbox(t, db.DB))

	loaded, version, err := repo.Load(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, "plan_pro", loaded.PlanID())
	assert.Equal(t, billing.SubscriptionStatusActive, loaded.Status())
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), loaded.CurrentPeriodStart())
	assert.Equal(t, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), loaded.CurrentPeriodEnd())
	assert.Equal(t, billing.BillingCycleMonthly, loaded.BillingCycle())
	assert.True(t, loaded.Amount().Amount().Equal(dec("29.99")))
	_, cancelled := loaded.CancelledAt()
	assert.False(t, cancelled)
}

func TestGormSubscriptionRepository_UpdateAndConflict(t *testing.T) {
	repo, _ := newSubscriptionRepo(t)
	ctx := context.Background()

	sub, err := newFactory().NewSubscription("cus_1", "plan_pro", usd("10"), billing.BillingCycleWeekly)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, sub, 0, sub.TakeEvents()...))

	a, va, err := repo.Load(ctx, sub.ID())
	require.NoError(t, err)
	b, vb, err := repo.Load(ctx, sub.ID())
	require.NoError(t, err)

	a.Cancel(false)
	require.NoError(t, repo.Save(ctx, a, va, a.TakeEvents()...))

	b.Renew()
	err = repo.Save(ctx, b, vb, b.TakeEvents()...)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

	loaded, version, err := repo.Load(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.Equal(t, billing.SubscriptionStatusCancelled, loaded.Status())
	at, ok := loaded.CancelledAt()
	require.True(t, ok)
	assert.True(t, at.Equal(testNow))
}

func TestGormSubscriptionRepository_FindDueForRenewal(t *testing.T) {
	repo, _ := newSubscriptionRepo(t)
	ctx := context.Background()
	f := newFactory()

	weekly, err := f.NewSubscription("cus_1", "plan", usd("5"), billing.BillingCycleWeekly)
	require.NoError(t, err)
	monthly, err := f.NewSubscription("cus_2", "plan", usd("5"), billing.BillingCycleMonthly)
	require.NoError(t, err)
	paused, err := f.NewSubscription("cus_3", "plan", usd("5"), billing.BillingCycleWeekly)
	require.NoError(t, err)
	paused.Pause()

	for _, s := range []*billing.Subscription{weekly, monthly, paused} {
		require.NoError(t, repo.Save(ctx, s, 0))
	}

	// weekly ends 2024-05-17, monthly ends 2024-06-09
	due, err := repo.FindDueForRenewal(ctx, time.Date(2024, 5, 16, 23, 0, 0, 0, time.UTC), billing.RenewalCursor{}, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.FindDueForRenewal(ctx, time.Date(2024, 5, 17, 8, 0, 0, 0, time.UTC), billing.RenewalCursor{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []billing.SubscriptionID{weekly.ID()}, dueIDs(due))
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), due[0].CurrentPeriodEnd)

	july := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	due, err = repo.FindDueForRenewal(ctx, july, billing.RenewalCursor{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []billing.SubscriptionID{weekly.ID(), monthly.ID()}, dueIDs(due))

	first, err := repo.FindDueForRenewal(ctx, july, billing.RenewalCursor{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []billing.SubscriptionID{weekly.ID()}, dueIDs(first))

	next, err := repo.FindDueForRenewal(ctx, july, first[0].Next(), 1)
	require.NoError(t, err)
	assert.Equal(t, []billing.SubscriptionID{monthly.ID()}, dueIDs(next))

	rest, err := repo.FindDueForRenewal(ctx, july, next[0].Next(), 1)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestGormSubscriptionRepository_FindDueForRenewal_SamePeriodEnd(t *testing.T) {
	repo, _ := newSubscriptionRepo(t)
	ctx := context.Background()
	f := newFactory()

	var ids []billing.SubscriptionID
	for i := 0; i < 3; i++ {
		s, err := f.NewSubscription("cus_1", "plan", usd("5"), billing.BillingCycleWeekly)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, s, 0))
		ids = append(ids, s.ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var got []billing.SubscriptionID
	var cursor billing.RenewalCursor
	for {
		page, err := repo.FindDueForRenewal(ctx, asOf, cursor, 2)
		require.NoError(t, err)
		got = append(got, dueIDs(page)...)
		if len(page) < 2 {
			break
		}
		cursor = page[len(page)-1].Next()
	}
	assert.Equal(t, ids, got)
}

func dueIDs(rows []billing.DueSubscription) []billing.SubscriptionID {
	ids := make([]billing.SubscriptionID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids
}

func TestGormSubscriptionRepository_List(t *testing.T) {
	repo, _ := newSubscriptionRepo(t)
	ctx := context.Background()
	f := newFactory()

	for _, plan := range []string{"basic", "pro", "pro"} {
		s, err := f.NewSubscription("cus_1", plan, usd("5"), billing.BillingCycleYearly)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, s, 0))
	}

	subs, total, err := repo.List(ctx, billing.SubscriptionFilter{PlanID: "pro"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, subs, 2)

	_, total, err = repo.List(ctx, billing.SubscriptionFilter{Status: billing.SubscriptionStatusCancelled})
	require.NoError(t, err)
	assert.Zero(t, total)
}
