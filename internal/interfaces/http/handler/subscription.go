package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	billingapp "github.com/paycore/backend/internal/application/billing"
	"github.com/paycore/backend/internal/domain/shared"
)

// SubscriptionService is the part of the billing application layer the
// subscription endpoints call
type SubscriptionService interface {
	Create(ctx context.Context, req billingapp.CreateSubscriptionRequest) (*billingapp.SubscriptionResponse, error)
	Renew(ctx context.Context, id string) (*billingapp.SubscriptionResponse, error)
	Cancel(ctx context.Context, id string, req billingapp.CancelSubscriptionRequest) (*billingapp.SubscriptionResponse, error)
	Pause(ctx context.Context, id string) (*billingapp.SubscriptionResponse, error)
	Resume(ctx context.Context, id string) (*billingapp.SubscriptionResponse, error)
	ReportPaymentFailure(ctx context.Context, id string) (*billingapp.SubscriptionResponse, error)
	Get(ctx context.Context, id string) (*billingapp.SubscriptionResponse, error)
	List(ctx context.Context, query billingapp.SubscriptionListQuery) (shared.Paginated[billingapp.SubscriptionResponse], error)
}

// SubscriptionHandler handles subscription HTTP requests
type SubscriptionHandler struct {
	BaseHandler
	subscriptions SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptions SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// Create godoc
// @Summary      Create a subscription
// @Description  Start an ACTIVE subscription whose first period begins today (UTC)
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        request body billingapp.CreateSubscriptionRequest true "Subscription creation request"
// @Success      201 {object} dto.Response{data=billingapp.SubscriptionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /subscriptions [post]
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req billingapp.CreateSubscriptionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sub, err := h.subscriptions.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sub)
}

// List godoc
// @Summary      List subscriptions
// @Tags         subscriptions
// @Produce      json
// @Param        customer_id query string false "Filter by customer"
// @Param        plan_id     query string false "Filter by plan"
// @Param        status      query string false "Filter by status"
// @Param        page        query int    false "Page number" default(1)
// @Param        page_size   query int    false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]billingapp.SubscriptionResponse,meta=dto.Meta}
// @Router       /subscriptions [get]
func (h *SubscriptionHandler) List(c *gin.Context) {
	var query billingapp.SubscriptionListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	page, err := h.subscriptions.List(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Get godoc
// @Summary      Get a subscription
// @Tags         subscriptions
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200 {object} dto.Response{data=billingapp.SubscriptionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /subscriptions/{id} [get]
func (h *SubscriptionHandler) Get(c *gin.Context) {
	h.respond(c, h.subscriptions.Get)
}

// Renew godoc
// @Summary      Renew a subscription
// @Description  Advance the billing period by one cycle
// @Tags         subscriptions
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200 {object} dto.Response{data=billingapp.SubscriptionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /subscriptions/{id}/renew [post]
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	h.respond(c, h.subscriptions.Renew)
}

// Cancel godoc
// @Summary      Cancel a subscription
// @Description  Cancel now, or with at_period_end keep it active until the period ends. The body is optional.
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Param        request body billingapp.CancelSubscriptionRequest false "Cancel options"
// @Success      200 {object} dto.Response{data=billingapp.SubscriptionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /subscriptions/{id}/cancel [post]
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	var req billingapp.CancelSubscriptionRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	sub, err := h.subscriptions.Cancel(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// Pause godoc
// @Summary      Pause a subscription
// @Tags         subscriptions
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200 {object} dto.Response{data=billingapp.SubscriptionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /subscriptions/{id}/pause [post]
func (h *SubscriptionHandler) Pause(c *gin.Context) {
	h.respond(c, h.subscriptions.Pause)
}

// Resume godoc
// @Summary      Resume a paused subscription
// @Description  Subscriptions that are not paused are returned unchanged
// @Tags         subscriptions
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200 {object} dto.Response{data=billingapp.SubscriptionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /subscriptions/{id}/resume [post]
func (h *SubscriptionHandler) Resume(c *gin.Context) {
	h.respond(c, h.subscriptions.Resume)
}

// ReportPaymentFailure godoc
// @Summary      Report a failed renewal charge
// @Description  Publishes SubscriptionPaymentFailed; the subscription status is unchanged
// @Tags         subscriptions
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200 {object} dto.Response{data=billingapp.SubscriptionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /subscriptions/{id}/payment-failures [post]
func (h *SubscriptionHandler) ReportPaymentFailure(c *gin.Context) {
	h.respond(c, h.subscriptions.ReportPaymentFailure)
}

func (h *SubscriptionHandler) respond(
	c *gin.Context,
	call func(ctx context.Context, id string) (*billingapp.SubscriptionResponse, error),
) {
	sub, err := call(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}
