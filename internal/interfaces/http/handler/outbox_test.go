package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/paycore/backend/internal/application/event"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupOutboxRouter(svc *mockOutboxService) *gin.Engine {
	h := NewOutboxHandler(svc)
	r := gin.New()
	outbox := r.Group("/api/v1/system/outbox")
	outbox.GET("/stats", h.GetStats)
	outbox.GET("/dead", h.GetDeadLetterEntries)
	outbox.POST("/dead/retry-all", h.RetryAllDeadEntries)
	outbox.POST("/dead/:id/retry", h.RetryDeadEntry)
	outbox.GET("/:id", h.GetEntry)
	return r
}

func sampleOutboxEntry(status string) *event.OutboxEntryDTO {
	now := time.Now().UTC()
	return &event.OutboxEntryDTO{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     "PaymentRefunded",
		AggregateID:   "pay_1",
		AggregateType: "Payment",
		Status:        status,
		RetryCount:    5,
		MaxRetries:    5,
		LastError:     "broker unavailable",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestOutboxHandler_GetStats(t *testing.T) {
	svc := new(mockOutboxService)
	svc.On("GetStats", mock.Anything).Return(&event.OutboxStatsDTO{Pending: 3, Sent: 10, Dead: 1, Total: 14}, nil)

	w := doRequest(setupOutboxRouter(svc), http.MethodGet, "/api/v1/system/outbox/stats", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, float64(3), data["pending"])
	assert.Equal(t, float64(14), data["total"])
}

func TestOutboxHandler_GetDeadLetterEntries(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		svc := new(mockOutboxService)
		svc.On("GetDeadLetterEntries", mock.Anything, shared.DefaultFilter()).
			Return(shared.NewPaginated([]event.OutboxEntryDTO{*sampleOutboxEntry("DEAD")}, 1, 1, 20), nil)

		w := doRequest(setupOutboxRouter(svc), http.MethodGet, "/api/v1/system/outbox/dead", "")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.Len(t, resp.Data, 1)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 20, resp.Meta.PageSize)
	})

	t.Run("explicit page", func(t *testing.T) {
		svc := new(mockOutboxService)
		svc.On("GetDeadLetterEntries", mock.Anything, shared.Filter{Page: 3, PageSize: 5}).
			Return(shared.NewPaginated([]event.OutboxEntryDTO{}, 11, 3, 5), nil)

		w := doRequest(setupOutboxRouter(svc), http.MethodGet, "/api/v1/system/outbox/dead?page=3&page_size=5", "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("page size over limit", func(t *testing.T) {
		svc := new(mockOutboxService)

		w := doRequest(setupOutboxRouter(svc), http.MethodGet, "/api/v1/system/outbox/dead?page_size=500", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOutboxHandler_RetryDeadEntry(t *testing.T) {
	t.Run("resets entry", func(t *testing.T) {
		svc := new(mockOutboxService)
		id := uuid.New()
		svc.On("RetryDeadEntry", mock.Anything, id).Return(sampleOutboxEntry("PENDING"), nil)

		w := doRequest(setupOutboxRouter(svc), http.MethodPost, "/api/v1/system/outbox/dead/"+id.String()+"/retry", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "PENDING", decodeResponse(t, w).Data.(map[string]any)["status"])
	})

	t.Run("entry not dead", func(t *testing.T) {
		svc := new(mockOutboxService)
		id := uuid.New()
		svc.On("RetryDeadEntry", mock.Anything, id).Return(nil, shared.ErrInvalidState)

		w := doRequest(setupOutboxRouter(svc), http.MethodPost, "/api/v1/system/outbox/dead/"+id.String()+"/retry", "")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := new(mockOutboxService)

		w := doRequest(setupOutboxRouter(svc), http.MethodPost, "/api/v1/system/outbox/dead/not-a-uuid/retry", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
	})
}

func TestOutboxHandler_RetryAllAndGetEntry(t *testing.T) {
	svc := new(mockOutboxService)
	id := uuid.New()
	svc.On("RetryAllDeadEntries", mock.Anything).Return(int64(4), nil)
	svc.On("GetEntry", mock.Anything, id).Return(nil, shared.ErrNotFound)
	r := setupOutboxRouter(svc)

	w := doRequest(r, http.MethodPost, "/api/v1/system/outbox/dead/retry-all", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"count":4}}`, w.Body.String())

	w = doRequest(r, http.MethodGet, "/api/v1/system/outbox/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
