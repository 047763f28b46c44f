package event

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeOutboxRepo keeps entries in memory, ordered by creation time
type fakeOutboxRepo struct {
	entries   map[uuid.UUID]*shared.OutboxEntry
	updateErr error
	countErr  error
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *fakeOutboxRepo) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *fakeOutboxRepo) byStatus(status shared.OutboxStatus) []*shared.OutboxEntry {
	var out []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *fakeOutboxRepo) FindPending(_ context.Context, limit int) ([]*shared.OutboxEntry, error) {
	out := r.byStatus(shared.OutboxStatusPending)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeOutboxRepo) FindRetryable(context.Context, time.Time, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) FindDead(_ context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	dead := r.byStatus(shared.OutboxStatusDead)
	total := int64(len(dead))
	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, total, nil
	}
	end := min(start+pageSize, len(dead))
	return dead[start:end], total, nil
}

func (r *fakeOutboxRepo) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOutboxRepo) MarkProcessing(context.Context, []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) Update(_ context.Context, entry *shared.OutboxEntry) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.entries[entry.ID] = entry
	return nil
}

func (r *fakeOutboxRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeOutboxRepo) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	if r.countErr != nil {
		return nil, r.countErr
	}
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

var baseTime = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func (r *fakeOutboxRepo) add(status shared.OutboxStatus) *shared.OutboxEntry {
	created := baseTime.Add(time.Duration(len(r.entries)) * time.Second)
	e := &shared.OutboxEntry{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     "PaymentCreated",
		AggregateID:   "pay_0123456789abcdef01234567",
		AggregateType: "Payment",
		Payload:       []byte(`{}`),
		Status:        status,
		MaxRetries:    shared.DefaultMaxRetries,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	if status == shared.OutboxStatusDead {
		e.RetryCount = e.MaxRetries
		e.LastError = "broker unavailable"
	}
	r.entries[e.ID] = e
	return e
}

func TestOutboxService_GetDeadLetterEntries(t *testing.T) {
	repo := newFakeOutboxRepo()
	for i := 0; i < 25; i++ {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusPending)
	svc := NewOutboxService(repo, zap.NewNop())

	page, err := svc.GetDeadLetterEntries(context.Background(), shared.Filter{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, "broker unavailable", page.Items[0].LastError)

	defaults, err := svc.GetDeadLetterEntries(context.Background(), shared.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 20, defaults.PageSize)
	assert.Len(t, defaults.Items, 20)
}

func TestOutboxService_GetEntry(t *testing.T) {
	repo := newFakeOutboxRepo()
	entry := repo.add(shared.OutboxStatusSent)
	svc := NewOutboxService(repo, nil)

	dto, err := svc.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.EventID, dto.EventID)
	assert.Equal(t, "SENT", dto.Status)

	_, err = svc.GetEntry(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	repo := newFakeOutboxRepo()
	entry := repo.add(shared.OutboxStatusDead)
	svc := NewOutboxService(repo, zap.NewNop())

	dto, err := svc.RetryDeadEntry(context.Background(), entry.ID)
	require.NoError(t, err)

	assert.Equal(t, string(shared.OutboxStatusPending), dto.Status)
	assert.Zero(t, dto.RetryCount)
	assert.Empty(t, dto.LastError)
	assert.Equal(t, shared.OutboxStatusPending, repo.entries[entry.ID].Status)
}

func TestOutboxService_RetryDeadEntry_NotFound(t *testing.T) {
	svc := NewOutboxService(newFakeOutboxRepo(), zap.NewNop())

	_, err := svc.RetryDeadEntry(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOutboxService_RetryDeadEntry_NotDead(t *testing.T) {
	repo := newFakeOutboxRepo()
	entry := repo.add(shared.OutboxStatusPending)
	svc := NewOutboxService(repo, zap.NewNop())

	_, err := svc.RetryDeadEntry(context.Background(), entry.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestOutboxService_RetryDeadEntry_UpdateFails(t *testing.T) {
	repo := newFakeOutboxRepo()
	entry := repo.add(shared.OutboxStatusDead)
	repo.updateErr = errors.New("db down")
	svc := NewOutboxService(repo, zap.NewNop())

	_, err := svc.RetryDeadEntry(context.Background(), entry.ID)
	domainErr, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "INTERNAL_ERROR", domainErr.Code)
}

func TestOutboxService_GetStats(t *testing.T) {
	repo := newFakeOutboxRepo()
	repo.add(shared.OutboxStatusPending)
	repo.add(shared.OutboxStatusPending)
	repo.add(shared.OutboxStatusSent)
	repo.add(shared.OutboxStatusFailed)
	repo.add(shared.OutboxStatusDead)
	svc := NewOutboxService(repo, zap.NewNop())

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &OutboxStatsDTO{Pending: 2, Sent: 1, Failed: 1, Dead: 1, Total: 5}, stats)

	repo.countErr = errors.New("db down")
	_, err = svc.GetStats(context.Background())
	assert.Error(t, err)
}

func TestOutboxService_RetryAllDeadEntries(t *testing.T) {
	repo := newFakeOutboxRepo()
	for i := 0; i < 150; i++ {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusSent)
	svc := NewOutboxService(repo, zap.NewNop())

	count, err := svc.RetryAllDeadEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(150), count)
	assert.Empty(t, repo.byStatus(shared.OutboxStatusDead))
	assert.Len(t, repo.byStatus(shared.OutboxStatusPending), 150)
}

func TestOutboxService_RetryAllDeadEntries_StopsWhenNothingCanBeReset(t *testing.T) {
	repo := newFakeOutboxRepo()
	for i := 0; i < 120; i++ {
		repo.add(shared.OutboxStatusDead)
	}
	repo.updateErr = errors.New("db down")
	svc := NewOutboxService(repo, zap.NewNop())

	count, err := svc.RetryAllDeadEntries(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
