package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	billingapp "github.com/paycore/backend/internal/application/billing"
	"github.com/paycore/backend/internal/domain/shared"
)

// PaymentService is the part of the billing application layer the payment
// endpoints call
type PaymentService interface {
	Create(ctx context.Context, req billingapp.CreatePaymentRequest) (*billingapp.PaymentResponse, error)
	Process(ctx context.Context, id string, req billingapp.PaymentMethodRequest) (*billingapp.PaymentResponse, error)
	Succeed(ctx context.Context, id string) (*billingapp.PaymentResponse, error)
	Fail(ctx context.Context, id string, req billingapp.FailPaymentRequest) (*billingapp.PaymentResponse, error)
	Refund(ctx context.Context, id string, req billingapp.RefundPaymentRequest) (*billingapp.PaymentResponse, error)
	Get(ctx context.Context, id string) (*billingapp.PaymentResponse, error)
	List(ctx context.Context, query billingapp.PaymentListQuery) (shared.Paginated[billingapp.PaymentResponse], error)
	ListRefunds(ctx context.Context, id string) ([]billingapp.RefundRecordResponse, error)
	HandleProviderCallback(ctx context.Context, req billingapp.ProviderCallbackRequest) (*billingapp.CallbackResult, error)
}

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	BaseHandler
	payments PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Create godoc
// @Summary      Create a payment
// @Description  Create a payment in PENDING status. Currency defaults to the service currency.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body billingapp.CreatePaymentRequest true "Payment creation request"
// @Success      201 {object} dto.Response{data=billingapp.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req billingapp.CreatePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	payment, err := h.payments.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// List godoc
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Param        customer_id query string false "Filter by customer"
// @Param        status      query string false "Filter by status"
// @Param        page        query int    false "Page number" default(1)
// @Param        page_size   query int    false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]billingapp.PaymentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var query billingapp.PaymentListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	page, err := h.payments.List(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Get godoc
// @Summary      Get a payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" example(pay_0f8fad5bd9cb469fa1657086)
// @Success      200 {object} dto.Response{data=billingapp.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Process godoc
// @Summary      Start processing a payment
// @Description  Attach the payment method and move the payment from PENDING to PROCESSING
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID"
// @Param        request body billingapp.PaymentMethodRequest true "Payment method"
// @Success      200 {object} dto.Response{data=billingapp.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id}/process [post]
func (h *PaymentHandler) Process(c *gin.Context) {
	var req billingapp.PaymentMethodRequest
	if !h.BindJSON(c, &req) {
		return
	}

	payment, err := h.payments.Process(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Succeed godoc
// @Summary      Mark a payment as succeeded
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID"
// @Success      200 {object} dto.Response{data=billingapp.PaymentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id}/succeed [post]
func (h *PaymentHandler) Succeed(c *gin.Context) {
	payment, err := h.payments.Succeed(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Fail godoc
// @Summary      Mark a payment as failed
// @Description  Always allowed; records the reason. The body is optional.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID"
// @Param        request body billingapp.FailPaymentRequest false "Failure reason"
// @Success      200 {object} dto.Response{data=billingapp.PaymentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id}/fail [post]
func (h *PaymentHandler) Fail(c *gin.Context) {
	var req billingapp.FailPaymentRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	payment, err := h.payments.Fail(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Refund godoc
// @Summary      Refund a payment
// @Description  Refund part or all of a SUCCEEDED or PARTIALLY_REFUNDED payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID"
// @Param        request body billingapp.RefundPaymentRequest true "Refund amount"
// @Success      200 {object} dto.Response{data=billingapp.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id}/refunds [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req billingapp.RefundPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	payment, err := h.payments.Refund(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// ListRefunds godoc
// @Summary      List the refunds recorded for a payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID"
// @Success      200 {object} dto.Response{data=[]billingapp.RefundRecordResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id}/refunds [get]
func (h *PaymentHandler) ListRefunds(c *gin.Context) {
	refunds, err := h.payments.ListRefunds(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if refunds == nil {
		refunds = []billingapp.RefundRecordResponse{}
	}
	h.Success(c, refunds)
}

// Webhook godoc
// @Summary      Payment provider callback
// @Description  Report a provider outcome. Redelivered event ids are acknowledged without effect.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body billingapp.ProviderCallbackRequest true "Provider callback"
// @Success      200 {object} dto.Response{data=billingapp.CallbackResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req billingapp.ProviderCallbackRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.payments.HandleProviderCallback(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
