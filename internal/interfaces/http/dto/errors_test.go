package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/paycore/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeValidationRequired, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeLockNotAcquired, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInvalidStatus, http.StatusUnprocessableEntity},
		{ErrCodeNotRefundable, http.StatusUnprocessableEntity},
		{ErrCodeRefundExceedsPayment, http.StatusUnprocessableEntity},
		{ErrCodeInvalidRefundAmount, http.StatusBadRequest},
		{ErrCodeInvalidPaymentMethod, http.StatusBadRequest},
		{ErrCodeInvalidBillingCycle, http.StatusBadRequest},
		{ErrCodeInvalidPaymentID, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"LOCK_NOT_ACQUIRED", ErrCodeLockNotAcquired},
		{"INTERNAL_ERROR", ErrCodeInternal},
		{"INVALID_STATUS", ErrCodeInvalidStatus},
		{"NOT_REFUNDABLE", ErrCodeNotRefundable},
		{"REFUND_EXCEEDS_PAYMENT", ErrCodeRefundExceedsPayment},
		{"INVALID_REFUND_AMOUNT", ErrCodeInvalidRefundAmount},
		// API codes pass through unchanged
		{ErrCodeNotFound, ErrCodeNotFound},
		{ErrCodeValidation, ErrCodeValidation},
		// Unknown codes pass through unchanged
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestDomainErrorCodeMapping_EveryTargetHasAStatus(t *testing.T) {
	for from, to := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[to]
		assert.True(t, ok, "%s maps to %s which has no HTTP status", from, to)
		assert.Contains(t, to, "ERR_")
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Payment not found", "req-123-456")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Payment not found", resp.Error.Message)
	assert.Equal(t, "req-123-456", resp.Error.RequestID)
	assert.Empty(t, resp.Error.Details)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "customer_id", Message: "This field is required"},
		{Field: "currency", Message: "Must be an ISO 4217 currency code"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Equal(t, details, resp.Error.Details)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-test-123", []ValidationDetail{
		{Field: "amount", Message: "Invalid value"},
	})

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")
	assert.NotContains(t, decoded, "meta")
	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeValidation, errObj["code"])
	assert.Equal(t, "req-test-123", errObj["request_id"])
	assert.Len(t, errObj["details"], 1)
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"id": "pay_1"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.Meta)
}

func TestNewSuccessResponseWithMetaPagination(t *testing.T) {
	tests := []struct {
		total         int64
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{11, 10, 2, 10},
		// Non-positive page sizes fall back to the default of 20
		{100, 0, 5, 20},
		{100, -1, 5, 20},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, 1, tt.pageSize)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
	}
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse(shared.NewPaginated([]string{"a", "b"}, 42, 2, 20))

	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a", "b"}, resp.Data)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, Meta{Total: 42, Page: 2, PageSize: 20, TotalPages: 3}, *resp.Meta)

	empty := NewPageResponse(shared.NewPaginated[string](nil, 0, 1, 20))
	assert.Equal(t, []string{}, empty.Data, "empty pages serialize as []")
}
