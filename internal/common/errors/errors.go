// Package errors provides the error taxonomy shared by the analysis pipeline, the HTTP API
// and the zeebe job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode is a stable, machine-readable error identifier.
type ErrorCode string

const (
	// Input errors: rejected immediately, never retried.
	ErrCodeUnsupportedFileType ErrorCode = "UNSUPPORTED_FILE_TYPE"
	ErrCodeFileTooLarge        ErrorCode = "FILE_TOO_LARGE"
	ErrCodeEmptyDocument       ErrorCode = "EMPTY_DOCUMENT"
	ErrCodeInvalidRequest      ErrorCode = "INVALID_REQUEST"

	// Document identity errors.
	ErrCodeDocumentNotFound    ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodeDocumentNotAnalyzed ErrorCode = "DOCUMENT_NOT_ANALYZED"

	// Collaborator errors.
	ErrCodeClauseEnrichmentFailed ErrorCode = "CLAUSE_ENRICHMENT_FAILED"
	ErrCodeLLMTimeout             ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMRequestFailed       ErrorCode = "LLM_REQUEST_FAILED"
	ErrCodeLLMInvalidResponse     ErrorCode = "LLM_INVALID_RESPONSE"

	// Infrastructure errors.
	ErrCodeStoreUnavailable       ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeArchiveFailed          ErrorCode = "ARCHIVE_FAILED"
	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeBlobStorageFailed      ErrorCode = "BLOB_STORAGE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	// Generic codes.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeBusinessRule    ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeAuthentication  ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError is thrown to the workflow engine when a job cannot succeed.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the variables attached to fail/throw commands.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewUnsupportedFileTypeError(extension string) *StandardError {
	return newError(ErrCodeUnsupportedFileType, "Unsupported file type",
		fmt.Sprintf("extension: %s", extension), false, nil)
}

func NewFileTooLargeError(sizeBytes, limitBytes int64) *StandardError {
	return newError(ErrCodeFileTooLarge, "File size exceeds limit",
		fmt.Sprintf("size: %d bytes, limit: %d bytes", sizeBytes, limitBytes), false, nil)
}

func NewEmptyDocumentError(documentID string) *StandardError {
	return newError(ErrCodeEmptyDocument, "No text could be extracted from the document",
		fmt.Sprintf("documentId: %s", documentID), false, nil)
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, false, nil)
}

func NewDocumentNotFoundError(documentID string) *StandardError {
	return newError(ErrCodeDocumentNotFound, "Document not found",
		fmt.Sprintf("documentId: %s", documentID), false, nil)
}

func NewDocumentNotAnalyzedError(documentID string) *StandardError {
	return newError(ErrCodeDocumentNotAnalyzed, "Document has not been analyzed",
		fmt.Sprintf("documentId: %s", documentID), false, nil)
}

func NewClauseEnrichmentFailedError(ordinal int, err error) *StandardError {
	return newError(ErrCodeClauseEnrichmentFailed, "Clause enrichment failed",
		fmt.Sprintf("ordinal: %d, error: %s", ordinal, errDetails(err)), true, err)
}

func NewLLMTimeoutError(operation string) *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM request timeout",
		fmt.Sprintf("operation: %s", operation), true, nil)
}

func NewLLMRequestFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeLLMRequestFailed, "LLM request failed",
		fmt.Sprintf("operation: %s, error: %s", operation, errDetails(err)), true, err)
}

func NewLLMInvalidResponseError(operation, details string) *StandardError {
	return newError(ErrCodeLLMInvalidResponse, "LLM returned an unusable response",
		fmt.Sprintf("operation: %s, %s", operation, details), true, nil)
}

func NewStoreUnavailableError(err error) *StandardError {
	return newError(ErrCodeStoreUnavailable, "Document store unavailable", errDetails(err), true, err)
}

func NewArchiveFailedError(err error) *StandardError {
	return newError(ErrCodeArchiveFailed, "Analysis archive operation failed", errDetails(err), true, err)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Clause search failed", errDetails(err), true, err)
}

func NewBlobStorageFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeBlobStorageFailed, "Blob storage operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, errDetails(err)), true, err)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, errDetails(err)), true, err)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRule, message, details, false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service),
		errDetails(err), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), errDetails(err), true, err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeNotFound, fmt.Sprintf("Resource not found in %s", service), details, false, nil)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false, nil)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns how many job retries a code deserves.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreUnavailable,
		ErrCodeArchiveFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeBlobStorageFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeLLMRequestFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeLLMInvalidResponse,
		ErrCodeTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError into the engine's error shape.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err into a StandardError, wrapping foreign errors as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for dashboards and logs.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "FILE") || strings.Contains(codeStr, "EMPTY") || strings.Contains(codeStr, "INVALID_REQUEST"):
		return "INPUT"
	case strings.HasPrefix(codeStr, "DOCUMENT"):
		return "DOCUMENT"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "ENRICHMENT"):
		return "AI"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "ARCHIVE") || strings.Contains(codeStr, "BLOB"):
		return "STORAGE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
