package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	billingapp "github.com/paycore/backend/internal/application/billing"
	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupSubscriptionRouter(svc *mockSubscriptionService) *gin.Engine {
	h := NewSubscriptionHandler(svc)
	r := gin.New()
	subs := r.Group("/api/v1/subscriptions")
	subs.POST("", h.Create)
	subs.GET("", h.List)
	subs.GET("/:id", h.Get)
	subs.POST("/:id/renew", h.Renew)
	subs.POST("/:id/cancel", h.Cancel)
	subs.POST("/:id/pause", h.Pause)
	subs.POST("/:id/resume", h.Resume)
	subs.POST("/:id/payment-failures", h.ReportPaymentFailure)
	return r
}

func sampleSubscription(status billing.SubscriptionStatus) *billingapp.SubscriptionResponse {
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	return &billingapp.SubscriptionResponse{
		ID:                 "sub-1",
		CustomerID:         "CUST001",
		PlanID:             "pro",
		Status:             string(status),
		BillingCycle:       string(billing.BillingCycleMonthly),
		Amount:             decimal.NewFromInt(49),
		Currency:           "USD",
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(0, 1, 0),
		CreatedAt:          start,
		UpdatedAt:          start,
	}
}

func TestSubscriptionHandler_Create(t *testing.T) {
	svc := new(mockSubscriptionService)
	svc.On("Create", mock.Anything, mock.MatchedBy(func(req billingapp.CreateSubscriptionRequest) bool {
		return req.PlanID == "pro" && req.BillingCycle == "MONTHLY" && req.Amount.Equal(decimal.NewFromInt(49))
	})).Return(sampleSubscription(billing.SubscriptionStatusActive), nil)

	w := doRequest(setupSubscriptionRouter(svc), http.MethodPost, "/api/v1/subscriptions",
		`{"customer_id":"CUST001","plan_id":"pro","amount":"49","billing_cycle":"MONTHLY"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "ACTIVE", data["status"])
	assert.Equal(t, false, data["cancel_at_period_end"])
	svc.AssertExpectations(t)
}

func TestSubscriptionHandler_CreateErrors(t *testing.T) {
	t.Run("missing plan", func(t *testing.T) {
		svc := new(mockSubscriptionService)

		w := doRequest(setupSubscriptionRouter(svc), http.MethodPost, "/api/v1/subscriptions",
			`{"customer_id":"CUST001","amount":"49","billing_cycle":"MONTHLY"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotEmpty(t, resp.Error.Details)
		assert.Equal(t, "plan_id", resp.Error.Details[0].Field)
	})

	t.Run("unknown billing cycle", func(t *testing.T) {
		svc := new(mockSubscriptionService)
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, billing.ErrInvalidBillingCycle)

		w := doRequest(setupSubscriptionRouter(svc), http.MethodPost, "/api/v1/subscriptions",
			`{"customer_id":"CUST001","plan_id":"pro","amount":"49","billing_cycle":"DAILY"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidBillingCycle, decodeResponse(t, w).Error.Code)
	})
}

func TestSubscriptionHandler_List(t *testing.T) {
	svc := new(mockSubscriptionService)
	svc.On("List", mock.Anything, billingapp.SubscriptionListQuery{PlanID: "pro", Status: "ACTIVE"}).
		Return(shared.NewPaginated([]billingapp.SubscriptionResponse{*sampleSubscription(billing.SubscriptionStatusActive)}, 1, 1, 20), nil)

	w := doRequest(setupSubscriptionRouter(svc), http.MethodGet, "/api/v1/subscriptions?plan_id=pro&status=ACTIVE", "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, 1, resp.Meta.TotalPages)
}

func TestSubscriptionHandler_IDActions(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		call       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"get", http.MethodGet, "/api/v1/subscriptions/sub-1", "Get", nil, http.StatusOK, ""},
		{"get missing", http.MethodGet, "/api/v1/subscriptions/sub-1", "Get", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"renew", http.MethodPost, "/api/v1/subscriptions/sub-1/renew", "Renew", nil, http.StatusOK, ""},
		{"renew cancelled", http.MethodPost, "/api/v1/subscriptions/sub-1/renew", "Renew", billing.ErrInvalidStatus, http.StatusUnprocessableEntity, dto.ErrCodeInvalidStatus},
		{"renew locked", http.MethodPost, "/api/v1/subscriptions/sub-1/renew", "Renew", shared.ErrLockNotAcquired, http.StatusConflict, dto.ErrCodeLockNotAcquired},
		{"pause", http.MethodPost, "/api/v1/subscriptions/sub-1/pause", "Pause", nil, http.StatusOK, ""},
		{"resume", http.MethodPost, "/api/v1/subscriptions/sub-1/resume", "Resume", nil, http.StatusOK, ""},
		{"payment failure", http.MethodPost, "/api/v1/subscriptions/sub-1/payment-failures", "ReportPaymentFailure", nil, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockSubscriptionService)
			call := svc.On(tt.call, mock.Anything, "sub-1")
			if tt.err != nil {
				call.Return(nil, tt.err)
			} else {
				call.Return(sampleSubscription(billing.SubscriptionStatusActive), nil)
			}

			w := doRequest(setupSubscriptionRouter(svc), tt.method, tt.path, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeResponse(t, w).Error.Code)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestSubscriptionHandler_Cancel(t *testing.T) {
	t.Run("immediate without body", func(t *testing.T) {
		svc := new(mockSubscriptionService)
		svc.On("Cancel", mock.Anything, "sub-1", billingapp.CancelSubscriptionRequest{}).
			Return(sampleSubscription(billing.SubscriptionStatusCancelled), nil)

		w := doRequest(setupSubscriptionRouter(svc), http.MethodPost, "/api/v1/subscriptions/sub-1/cancel", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "CANCELLED", decodeResponse(t, w).Data.(map[string]any)["status"])
	})

	t.Run("at period end", func(t *testing.T) {
		svc := new(mockSubscriptionService)
		sub := sampleSubscription(billing.SubscriptionStatusActive)
		sub.CancelAtPeriodEnd = true
		svc.On("Cancel", mock.Anything, "sub-1", billingapp.CancelSubscriptionRequest{AtPeriodEnd: true}).Return(sub, nil)

		w := doRequest(setupSubscriptionRouter(svc), http.MethodPost, "/api/v1/subscriptions/sub-1/cancel", `{"at_period_end":true}`)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "ACTIVE", data["status"])
		assert.Equal(t, true, data["cancel_at_period_end"])
	})

	t.Run("already cancelled", func(t *testing.T) {
		svc := new(mockSubscriptionService)
		svc.On("Cancel", mock.Anything, "sub-1", billingapp.CancelSubscriptionRequest{}).Return(nil, billing.ErrAlreadyCancelled)

		w := doRequest(setupSubscriptionRouter(svc), http.MethodPost, "/api/v1/subscriptions/sub-1/cancel", "")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyCancelled, decodeResponse(t, w).Error.Code)
	})
}
