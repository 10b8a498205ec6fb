package dto

import (
	"net/http"
	"strings"
)

// Transport-level error codes. Domain codes (CLIENT_NOT_FOUND,
// INSUFFICIENT_POINTS, ...) pass through unchanged.
const (
	// ErrCodeInvalidRequest is used for malformed bodies and missing parameters
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	// ErrCodeValidation is used when binding tags reject a field
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeNotFound is used when no more specific not-found code applies
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeDuplicateRequest is used when an Idempotency-Key is reused
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "RATE_LIMIT_EXCEEDED"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeServiceMisconfigured is used when no data store is configured
	ErrCodeServiceMisconfigured = "SERVICE_MISCONFIGURED"
	// ErrCodeServiceUnavailable is used when the data store cannot be reached
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Input errors -> 400 Bad Request
	ErrCodeInvalidRequest: http.StatusBadRequest,
	ErrCodeValidation:     http.StatusBadRequest,
	"INVALID_INPUT":       http.StatusBadRequest,

	// Business rule violations -> 400 Bad Request
	"LOYALTY_DISABLED":       http.StatusBadRequest,
	"BELOW_THRESHOLD":        http.StatusBadRequest,
	"INSUFFICIENT_POINTS":    http.StatusBadRequest,
	"NEGATIVE_BALANCE":       http.StatusBadRequest,
	"CLIENT_INACTIVE":        http.StatusBadRequest,
	"REWARD_INACTIVE":        http.StatusBadRequest,
	"REWARD_EXPIRED":         http.StatusBadRequest,
	"OUT_OF_STOCK":           http.StatusBadRequest,
	"CODE_ALREADY_USED":      http.StatusBadRequest,
	"CODE_ALREADY_CANCELLED": http.StatusBadRequest,
	"CODE_EXPIRED":           http.StatusBadRequest,

	// Conflicts
	ErrCodeDuplicateRequest: http.StatusConflict,
	"CONTACT_IN_USE":        http.StatusConflict,
	"ALREADY_EXISTS":        http.StatusConflict,
	"CONCURRENCY_CONFLICT":  http.StatusConflict,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	// Server side
	ErrCodeInternal:             http.StatusInternalServerError,
	ErrCodeServiceMisconfigured: http.StatusInternalServerError,
	"CODE_GENERATION_FAILED":    http.StatusInternalServerError,
	ErrCodeServiceUnavailable:   http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unlisted *_NOT_FOUND codes map to 404 and INVALID_*/MISSING_* codes to 400;
// anything else is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case code == ErrCodeNotFound, strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(code, "INVALID_"), strings.HasPrefix(code, "MISSING_"):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
