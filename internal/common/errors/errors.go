// Package errors provides standardized error handling for the
// notification backend.
package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeTemplateNotFound     ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeNotificationNotFound ErrorCode = "NOTIFICATION_NOT_FOUND"
	ErrCodeDeviceTokenNotFound  ErrorCode = "DEVICE_TOKEN_NOT_FOUND"

	ErrCodeDuplicateTemplateName  ErrorCode = "DUPLICATE_TEMPLATE_NAME"
	ErrCodeTokenOwnershipConflict ErrorCode = "TOKEN_OWNERSHIP_CONFLICT"

	ErrCodeEmailSendFailed ErrorCode = "EMAIL_SEND_FAILED"
	ErrCodePushSendFailed  ErrorCode = "PUSH_SEND_FAILED"

	ErrCodeInvalidNotificationType ErrorCode = "INVALID_NOTIFICATION_TYPE"
	ErrCodeChannelMisconfigured    ErrorCode = "CHANNEL_MISCONFIGURED"

	ErrCodeQueryExecutionFailed ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewValidationError creates a non-retryable input validation error.
// Message is the user-visible reason, e.g. "Email is required for
// email notifications".
func NewValidationError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable template error.
func NewTemplateNotFoundError(templateID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found",
		Details:   fmt.Sprintf("templateId: %d", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationNotFoundError creates a non-retryable lookup error.
func NewNotificationNotFoundError(notificationID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationNotFound,
		Message:   "Notification not found",
		Details:   fmt.Sprintf("notificationId: %d", notificationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeviceTokenNotFoundError creates a non-retryable lookup error.
func NewDeviceTokenNotFoundError() *StandardError {
	return &StandardError{
		Code:      ErrCodeDeviceTokenNotFound,
		Message:   "Device token not found",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateTemplateNameError creates a non-retryable conflict error.
func NewDuplicateTemplateNameError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateTemplateName,
		Message:   "Template with this name already exists",
		Details:   fmt.Sprintf("name: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenOwnershipConflictError creates a non-retryable conflict
// error for a token already registered to a different user.
func NewTokenOwnershipConflictError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenOwnershipConflict,
		Message:   "Device token is registered to another user",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailSendFailedError wraps a mail transport failure. Retryable is
// informational only; this system performs no retries itself.
func NewEmailSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailSendFailed,
		Message:   "Email delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPushSendFailedError wraps a push provider failure.
func NewPushSendFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePushSendFailed,
		Message:   "Push delivery failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidNotificationTypeError creates a fatal configuration error
// for an unknown notification type reaching the dispatch path.
func NewInvalidNotificationTypeError(typ string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidNotificationType,
		Message:   "Invalid notification type",
		Details:   fmt.Sprintf("type: %s", typ),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewChannelMisconfiguredError creates a startup configuration error
// for a channel missing credentials.
func NewChannelMisconfiguredError(channel, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeChannelMisconfigured,
		Message:   fmt.Sprintf("Channel '%s' is misconfigured", channel),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable database error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected failure. Details are logged,
// never exposed to callers.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal server error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HTTPStatus maps error codes to HTTP status codes for the API
// envelope.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeTemplateNotFound, ErrCodeNotificationNotFound, ErrCodeDeviceTokenNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicateTemplateName, ErrCodeTokenOwnershipConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AsStandardError extracts a *StandardError from err, or wraps err as
// an internal error so callers always have a code to map.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if goerrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}
