// file: internal/services/errors.go
package services

import (
	"alphahub/internal/models"
	"errors"
	"fmt"
	"net/http"
)

// ===============================
// ERROR TYPES
// ===============================

// ServiceError represents a structured service error
type ServiceError struct {
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for this error
func (e *ServiceError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewBusinessError creates a business logic error
func NewBusinessError(message, code string) *ServiceError {
	return &ServiceError{
		Type:       "BUSINESS_ERROR",
		Message:    message,
		Code:       code,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Type:       "NOT_FOUND",
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message, code string) *ServiceError {
	return &ServiceError{
		Type:       "CONFLICT",
		Message:    message,
		Code:       code,
		StatusCode: http.StatusConflict,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *ServiceError {
	return &ServiceError{
		Type:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// ===============================
// REWARDS ERROR CODES
// ===============================

// State-conflict and precondition codes for the rewards engine. Conflicts are
// expected in normal operation and safe to retry or ignore; precondition
// failures reject the whole request.
const (
	CodeAlreadyAwarded      = "ALREADY_AWARDED"
	CodeAlreadyPinned       = "ALREADY_PINNED"
	CodeNotPinned           = "NOT_PINNED"
	CodePinLimitExceeded    = "PIN_LIMIT_EXCEEDED"
	CodeSelfEngagement      = "SELF_ENGAGEMENT"
	CodeDuplicateEngagement = "DUPLICATE_ENGAGEMENT"
	CodeMisconfiguredRule   = "MISCONFIGURED_RULE"
	CodeDailyLimitReached   = "DAILY_LIMIT_REACHED"
	CodeCooldownActive      = "COOLDOWN_ACTIVE"
)

// NewAlreadyPinnedError signals a pin request for an already pinned badge.
func NewAlreadyPinnedError() *ServiceError {
	return NewConflictError("badge is already pinned", CodeAlreadyPinned)
}

// NewNotPinnedError signals an unpin request for a badge that is not pinned.
func NewNotPinnedError() *ServiceError {
	return NewConflictError("badge is not pinned", CodeNotPinned)
}

// NewPinLimitExceededError signals that all pin slots are occupied.
func NewPinLimitExceededError() *ServiceError {
	return NewBusinessError(
		fmt.Sprintf("cannot pin more than %d badges", models.MaxPinnedBadges),
		CodePinLimitExceeded,
	)
}

// NewSelfEngagementError rejects engaging with one's own content.
func NewSelfEngagementError() *ServiceError {
	return NewBusinessError("cannot engage with your own content", CodeSelfEngagement)
}

// NewDuplicateEngagementError rejects a second engagement on the same post.
func NewDuplicateEngagementError() *ServiceError {
	return NewConflictError("engagement already recorded for this post", CodeDuplicateEngagement)
}

// ===============================
// ERROR UTILITIES
// ===============================

// GetServiceError extracts a ServiceError from an error, or wraps it as a
// generic internal error.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return NewInternalError(err.Error())
}

// IsErrorCode checks if an error carries a specific rewards code
func IsErrorCode(err error, code string) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code == code
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Type == "VALIDATION_ERROR"
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Type == "NOT_FOUND"
	}
	return false
}

// IsAlreadyPinned checks for the already-pinned conflict
func IsAlreadyPinned(err error) bool { return IsErrorCode(err, CodeAlreadyPinned) }

// IsNotPinned checks for the not-pinned conflict
func IsNotPinned(err error) bool { return IsErrorCode(err, CodeNotPinned) }

// IsPinLimitExceeded checks for the pin-cap rejection
func IsPinLimitExceeded(err error) bool { return IsErrorCode(err, CodePinLimitExceeded) }

// IsSelfEngagement checks for the self-engagement rejection
func IsSelfEngagement(err error) bool { return IsErrorCode(err, CodeSelfEngagement) }

// IsDuplicateEngagement checks for the duplicate-engagement rejection
func IsDuplicateEngagement(err error) bool { return IsErrorCode(err, CodeDuplicateEngagement) }
