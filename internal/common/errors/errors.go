// Package errors provides standardized error handling for the marketplace API.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeFieldValidationFailed ErrorCode = "FIELD_VALIDATION_FAILED"
	ErrCodeStepNotAdvanceable    ErrorCode = "STEP_NOT_ADVANCEABLE"
	ErrCodeStepOutOfRange        ErrorCode = "STEP_OUT_OF_RANGE"
	ErrCodeFlowNotFound          ErrorCode = "FLOW_NOT_FOUND"
	ErrCodeSessionNotFound       ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionExpired        ErrorCode = "SESSION_EXPIRED"

	ErrCodePropertyNotFound     ErrorCode = "PROPERTY_NOT_FOUND"
	ErrCodeVerificationNotFound ErrorCode = "VERIFICATION_NOT_FOUND"
	ErrCodeNotPropertyOwner  ErrorCode = "NOT_PROPERTY_OWNER"
	ErrCodeDuplicateListing  ErrorCode = "DUPLICATE_LISTING"
	ErrCodeInvalidCriteria   ErrorCode = "INVALID_CRITERIA"
	ErrCodeSearchIndexFailed ErrorCode = "SEARCH_INDEX_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeGatewayPending       ErrorCode = "GATEWAY_PENDING"
	ErrCodeGatewayFailed        ErrorCode = "GATEWAY_FAILED"
	ErrCodeCaptureDenied        ErrorCode = "CAPTURE_PERMISSION_DENIED"
	ErrCodeCaptureNotAcquired   ErrorCode = "CAPTURE_NOT_ACQUIRED"
	ErrCodeCodeDeliveryFailed   ErrorCode = "CODE_DELIVERY_FAILED"
	ErrCodeCodeInvalid          ErrorCode = "CODE_INVALID"
	ErrCodeCodeExpired          ErrorCode = "CODE_EXPIRED"
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeEmailTaken           ErrorCode = "EMAIL_TAKEN"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Fields    map[string]string      `json:"fields,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewFieldValidationError carries a field->message map back to the caller.
// Entered data is never cleared by a validation failure.
func NewFieldValidationError(fields map[string]string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFieldValidationFailed,
		Message:   "One or more fields failed validation",
		Fields:    fields,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStepOutOfRangeError creates a non-retryable navigation error.
func NewStepOutOfRangeError(step, total int) *StandardError {
	return &StandardError{
		Code:      ErrCodeStepOutOfRange,
		Message:   "Requested step is not reachable",
		Details:   fmt.Sprintf("step: %d, totalSteps: %d", step, total),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFlowNotFoundError creates a non-retryable flow lookup error.
func NewFlowNotFoundError(flow string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFlowNotFound,
		Message:   "Wizard flow not registered",
		Details:   fmt.Sprintf("flow: %s", flow),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError creates a non-retryable session lookup error.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Wizard session not found or expired",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPropertyNotFoundError creates a non-retryable property lookup error.
func NewPropertyNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodePropertyNotFound,
		Message:   "Property not found",
		Details:   fmt.Sprintf("propertyId: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotPropertyOwnerError creates a non-retryable ownership error.
func NewNotPropertyOwnerError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotPropertyOwner,
		Message:   "Property is mutable only by its owner",
		Details:   fmt.Sprintf("propertyId: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGatewayFailedError wraps an outbound operation failure. The wizard stays
// on its current step; nothing is retried automatically.
func NewGatewayFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGatewayFailed,
		Message:   "Outbound operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCaptureDeniedError creates a resource error with a fallback hint.
func NewCaptureDeniedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCaptureDenied,
		Message:   "Camera permission denied; upload an image instead",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCaptureNotAcquiredError signals a capture trigger with no live stream.
func NewCaptureNotAcquiredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeCaptureNotAcquired,
		Message:   "No capture stream acquired",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCodeDeliveryFailedError creates a retryable delivery error.
func NewCodeDeliveryFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCodeDeliveryFailed,
		Message:   "Verification code delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCodeInvalidError creates a non-retryable code mismatch error.
func NewCodeInvalidError() *StandardError {
	return &StandardError{
		Code:      ErrCodeCodeInvalid,
		Message:   "Verification code is incorrect",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCodeExpiredError creates a non-retryable code expiry error.
func NewCodeExpiredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeCodeExpired,
		Message:   "Verification code has expired",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationError creates a non-retryable authentication error.
func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthenticationFailed,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailTakenError creates a non-retryable duplicate account error.
func NewEmailTakenError(email string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailTaken,
		Message:   "An account with this email already exists",
		Details:   fmt.Sprintf("email: %s", email),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Mapping
// ==========================

// HTTPStatus maps an error code to the response status the API surfaces.
// Unexpected errors collapse to 500 with a generic message so backend detail
// never leaks to the client.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeFieldValidationFailed, ErrCodeStepNotAdvanceable:
		return http.StatusUnprocessableEntity
	case ErrCodeStepOutOfRange, ErrCodeInvalidCriteria:
		return http.StatusBadRequest
	case ErrCodeFlowNotFound, ErrCodeSessionNotFound, ErrCodePropertyNotFound,
		ErrCodeVerificationNotFound:
		return http.StatusNotFound
	case ErrCodeSessionExpired, ErrCodeCodeExpired:
		return http.StatusGone
	case ErrCodeNotPropertyOwner, ErrCodeCaptureDenied:
		return http.StatusForbidden
	case ErrCodeAuthenticationFailed, ErrCodeCodeInvalid:
		return http.StatusUnauthorized
	case ErrCodeEmailTaken, ErrCodeDuplicateListing:
		return http.StatusConflict
	case ErrCodeGatewayFailed, ErrCodeCodeDeliveryFailed, ErrCodeSearchIndexFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// GetErrorCategory returns the taxonomy bucket for the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "STEP"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CAPTURE"):
		return "RESOURCE"
	case strings.Contains(codeStr, "GATEWAY") || strings.Contains(codeStr, "DELIVERY") ||
		strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") ||
		strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "INDEX"):
		return "GATEWAY"
	default:
		return "TERMINAL"
	}
}

// AsStandard normalizes any error to a StandardError. Unknown errors become a
// generic non-retryable internal error; the original detail stays in Details
// for logging, never for the wire.
func AsStandard(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Something went wrong, please try again",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
