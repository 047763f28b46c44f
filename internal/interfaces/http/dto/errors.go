package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeLockNotAcquired is used when another writer holds the aggregate lock
	ErrCodeLockNotAcquired = "ERR_LOCK_NOT_ACQUIRED"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeInvalidStatus is used when a payment transition is not allowed
	ErrCodeInvalidStatus = "ERR_INVALID_STATUS"
	// ErrCodeNotRefundable is used when the payment status forbids refunds
	ErrCodeNotRefundable = "ERR_NOT_REFUNDABLE"
	// ErrCodeRefundExceedsPayment is used when refunds would pass the amount paid
	ErrCodeRefundExceedsPayment = "ERR_REFUND_EXCEEDS_PAYMENT"
	// ErrCodeAlreadyCancelled is used when a subscription is already cancelled
	ErrCodeAlreadyCancelled = "ERR_ALREADY_CANCELLED"
	// ErrCodeNotPaused is used when resuming a subscription that is not paused
	ErrCodeNotPaused = "ERR_NOT_PAUSED"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeInvalidRefundAmount is used for zero or negative refunds
	ErrCodeInvalidRefundAmount = "ERR_INVALID_REFUND_AMOUNT"
	// ErrCodeInvalidPaymentMethod is used for an unknown payment method type
	ErrCodeInvalidPaymentMethod = "ERR_INVALID_PAYMENT_METHOD"
	// ErrCodeInvalidBillingCycle is used for an unknown billing cycle
	ErrCodeInvalidBillingCycle = "ERR_INVALID_BILLING_CYCLE"
	// ErrCodeInvalidPaymentID is used for a malformed payment id
	ErrCodeInvalidPaymentID = "ERR_INVALID_PAYMENT_ID"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeLockNotAcquired:     http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:         http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:         http.StatusUnprocessableEntity,
	ErrCodeInvalidStatus:        http.StatusUnprocessableEntity,
	ErrCodeNotRefundable:        http.StatusUnprocessableEntity,
	ErrCodeRefundExceedsPayment: http.StatusUnprocessableEntity,
	ErrCodeAlreadyCancelled:     http.StatusUnprocessableEntity,
	ErrCodeNotPaused:            http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeInvalidInput:         http.StatusBadRequest,
	ErrCodeInvalidJSON:          http.StatusBadRequest,
	ErrCodeInvalidRefundAmount:  http.StatusBadRequest,
	ErrCodeInvalidPaymentMethod: http.StatusBadRequest,
	ErrCodeInvalidBillingCycle:  http.StatusBadRequest,
	ErrCodeInvalidPaymentID:     http.StatusBadRequest,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps the codes raised by the domain and application
// layers to their API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":   ErrCodeConcurrencyConflict,
	"LOCK_NOT_ACQUIRED":      ErrCodeLockNotAcquired,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"BAD_REQUEST":            ErrCodeBadRequest,
	"INTERNAL_ERROR":         ErrCodeInternal,
	"INVALID_STATUS":         ErrCodeInvalidStatus,
	"NOT_REFUNDABLE":         ErrCodeNotRefundable,
	"REFUND_EXCEEDS_PAYMENT": ErrCodeRefundExceedsPayment,
	"INVALID_REFUND_AMOUNT":  ErrCodeInvalidRefundAmount,
	"ALREADY_CANCELLED":      ErrCodeAlreadyCancelled,
	"NOT_PAUSED":             ErrCodeNotPaused,
	"INVALID_PAYMENT_METHOD": ErrCodeInvalidPaymentMethod,
	"INVALID_BILLING_CYCLE":  ErrCodeInvalidBillingCycle,
	"INVALID_PAYMENT_ID":     ErrCodeInvalidPaymentID,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
