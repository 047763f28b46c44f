package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/domain/shared/valueobject"
	"github.com/paycore/backend/internal/infrastructure/config"
	"github.com/paycore/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// txOutboxSaver writes outbox rows through the repository's transaction
type txOutboxSaver struct {
	err   error
	saved []shared.DomainEvent
}

func (s *txOutboxSaver) SaveEvents(ctx context.Context, txProvider any, events ...shared.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return errors.New("expected *gorm.DB")
	}
	for _, e := range events {
		entry := shared.NewOutboxEntry(e, []byte(`{}`))
		if err := tx.WithContext(ctx).Create(models.OutboxEntryModelFromDomain(entry)).Error; err != nil {
			return err
		}
	}
	s.saved = append(s.saved, events...)
	return nil
}

func countOutbox(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Count(&n).Error)
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func usd(s string) valueobject.Money {
	return valueobject.MustNewMoney(dec(s), valueobject.USD)
}

func newFactory(ids ...string) *billing.Factory {
	return billing.NewFactory(shared.NewSequenceIDGenerator(ids...), shared.NewFixedClock(testNow))
}
