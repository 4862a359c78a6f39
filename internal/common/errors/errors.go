// Package errors provides standardized error handling for the notification
// delivery engine.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeTemplateNotFound     ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateStoreFailed  ErrorCode = "TEMPLATE_STORE_FAILED"
	ErrCodeRecordStoreFailed    ErrorCode = "RECORD_STORE_FAILED"
	ErrCodeOptionStoreFailed    ErrorCode = "OPTION_STORE_FAILED"
	ErrCodeTransportFailed      ErrorCode = "TRANSPORT_FAILED"
	ErrCodeInvalidRecipient     ErrorCode = "INVALID_RECIPIENT"
	ErrCodeQueueCorrupt         ErrorCode = "QUEUE_CORRUPT"
	ErrCodeLockHeld             ErrorCode = "LOCK_HELD"
	ErrCodeSeedRegistryInvalid  ErrorCode = "SEED_REGISTRY_INVALID"
	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
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

// ==========================
// 2. Error Constructors
// ==========================

// NewTemplateNotFoundError creates a non-retryable resolution error. A
// resolution miss is normally a no-send, not an error; this is used only
// when a caller demanded a template that must exist.
func NewTemplateNotFoundError(category string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "No template resolved for category",
		Details:   fmt.Sprintf("category: %s", category),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateStoreError creates a retryable template store error.
func NewTemplateStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateStoreFailed,
		Message:   "Template store read failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordStoreError creates a retryable record store error.
func NewRecordStoreError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordStoreFailed,
		Message:   "Record store operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewOptionStoreError creates a retryable option store error.
func NewOptionStoreError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeOptionStoreFailed,
		Message:   "Option store operation failed",
		Details:   fmt.Sprintf("key: %s, error: %s", key, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportFailedError creates a retryable mail transport error. Retry
// happens via the reschedule queue only, never inside a single send.
func NewTransportFailedError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportFailed,
		Message:   "Mail transport send failed",
		Details:   fmt.Sprintf("provider: %s, error: %s", provider, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRecipientError creates a non-retryable recipient error.
func NewInvalidRecipientError(address string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRecipient,
		Message:   "Recipient address is not a valid email",
		Details:   fmt.Sprintf("address: %s", address),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueueCorruptError creates a non-retryable retry queue decode error.
func NewQueueCorruptError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueueCorrupt,
		Message:   "Retry queue payload could not be decoded",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLockHeldError signals a batch invocation skipped because another run
// holds the pathway lock.
func NewLockHeldError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLockHeld,
		Message:   "Pathway lock already held by another run",
		Details:   fmt.Sprintf("lock: %s", key),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSeedRegistryInvalidError creates a non-retryable seed registry error.
func NewSeedRegistryInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSeedRegistryInvalid,
		Message:   "Template seed registry failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsRetryable reports whether err is a retryable StandardError.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}

// IsLockHeld reports whether err means another run owns the pathway lock.
func IsLockHeld(err error) bool {
	stdErr, ok := err.(*StandardError)
	return ok && stdErr.Code == ErrCodeLockHeld
}

// GetErrorCategory returns the coarse category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "STORE"):
		return "STORE"
	case strings.Contains(codeStr, "TRANSPORT") || strings.Contains(codeStr, "RECIPIENT"):
		return "DELIVERY"
	case strings.Contains(codeStr, "QUEUE") || strings.Contains(codeStr, "LOCK"):
		return "STATE"
	default:
		return "OTHER"
	}
}
