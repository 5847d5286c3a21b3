// Package errors provides standardized error handling for BPMN workflow integration.
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

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeIntentParsingFailed ErrorCode = "INTENT_PARSING_FAILED"
	ErrCodeInvalidIntent       ErrorCode = "INVALID_INTENT"
	ErrCodeUnknownMode         ErrorCode = "UNKNOWN_MODE"
	ErrCodeMissingTheme        ErrorCode = "MISSING_SEMANTIC_QUERY"

	ErrCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed ErrorCode = "LLM_SYNTHESIS_FAILED"
	ErrCodeEmbeddingFailed    ErrorCode = "EMBEDDING_FAILED"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"
	ErrCodeIndexingFailed                ErrorCode = "INDEXING_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Sentinels shared by the clients and the workers. Each message is its code,
// so a wrapped sentinel still prints the code first.
var (
	ErrIntentParsingFailed = stderrors.New(string(ErrCodeIntentParsingFailed))
	ErrInvalidIntent       = stderrors.New(string(ErrCodeInvalidIntent))
	ErrUnknownMode         = stderrors.New(string(ErrCodeUnknownMode))
	ErrMissingTheme        = stderrors.New(string(ErrCodeMissingTheme))
	ErrLLMTimeout          = stderrors.New(string(ErrCodeLLMTimeout))
	ErrLLMSynthesisFailed  = stderrors.New(string(ErrCodeLLMSynthesisFailed))
	ErrEmbeddingFailed     = stderrors.New(string(ErrCodeEmbeddingFailed))
	ErrSearchQueryFailed   = stderrors.New(string(ErrCodeSearchQueryFailed))
	ErrSearchTimeout       = stderrors.New(string(ErrCodeSearchTimeout))
	ErrIndexNotFound       = stderrors.New(string(ErrCodeIndexNotFound))
	ErrIndexingFailed      = stderrors.New(string(ErrCodeIndexingFailed))
	ErrQueryExecution      = stderrors.New(string(ErrCodeQueryExecutionFailed))
)

// sentinelCodes is checked in order; the first match wins.
var sentinelCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrIntentParsingFailed, ErrCodeIntentParsingFailed},
	{ErrInvalidIntent, ErrCodeInvalidIntent},
	{ErrUnknownMode, ErrCodeUnknownMode},
	{ErrMissingTheme, ErrCodeMissingTheme},
	{ErrLLMTimeout, ErrCodeLLMTimeout},
	{ErrLLMSynthesisFailed, ErrCodeLLMSynthesisFailed},
	{ErrEmbeddingFailed, ErrCodeEmbeddingFailed},
	{ErrSearchTimeout, ErrCodeSearchTimeout},
	{ErrIndexNotFound, ErrCodeIndexNotFound},
	{ErrSearchQueryFailed, ErrCodeSearchQueryFailed},
	{ErrIndexingFailed, ErrCodeIndexingFailed},
	{ErrQueryExecution, ErrCodeQueryExecutionFailed},
}

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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
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

var codeMessages = map[ErrorCode]string{
	ErrCodeInvalidInput:                  "Job variables could not be decoded",
	ErrCodeIntentParsingFailed:           "Query classification returned an unusable reply",
	ErrCodeInvalidIntent:                 "Intent does not carry what the handler needs",
	ErrCodeUnknownMode:                   "Intent mode is not one of single, comparison, filtered",
	ErrCodeMissingTheme:                  "Filtered search requires a semantic query",
	ErrCodeLLMTimeout:                    "Language model call timed out",
	ErrCodeLLMSynthesisFailed:            "Language model call failed",
	ErrCodeEmbeddingFailed:               "Embedding request failed",
	ErrCodeElasticsearchConnectionFailed: "Elasticsearch connection error",
	ErrCodeSearchQueryFailed:             "Vector search failed",
	ErrCodeSearchTimeout:                 "Vector search timed out",
	ErrCodeIndexNotFound:                 "Fund index not found",
	ErrCodeIndexingFailed:                "Fund indexing failed",
	ErrCodeDatabaseConnectionFailed:      "Database connection error",
	ErrCodeQueryExecutionFailed:          "Database query execution error",
	ErrCodeInternal:                      "Unexpected error",
}

// New creates a StandardError for code, keeping err as its cause.
func New(code ErrorCode, err error) *StandardError {
	msg, ok := codeMessages[code]
	if !ok {
		msg = string(code)
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   msg,
		Details:   details,
		Retryable: IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidInputError creates a non-retryable decode error.
func NewInvalidInputError(err error) *StandardError {
	return New(ErrCodeInvalidInput, err)
}

// NewTimeoutError creates a retryable timeout error for an external service.
func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewExternalServiceError creates a retryable error for an external service.
func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// FromError normalizes any error into a StandardError. Wrapped sentinels keep
// their code; anything else becomes INTERNAL_ERROR.
func FromError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return New(CodeOf(err), err)
}

// CodeOf returns the code of the first known sentinel in err's chain.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	for _, sc := range sentinelCodes {
		if stderrors.Is(err, sc.err) {
			return sc.code
		}
	}
	return ErrCodeInternal
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes modelled on
// boundary events. Codes not listed are thrown unchanged.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:                  "FUND_QUERY_INVALID",
	ErrCodeInvalidIntent:                 "FUND_QUERY_INVALID",
	ErrCodeUnknownMode:                   "FUND_QUERY_INVALID",
	ErrCodeMissingTheme:                  "MISSING_SEMANTIC_QUERY",
	ErrCodeIntentParsingFailed:           "INTENT_PARSING_FAILED",
	ErrCodeLLMTimeout:                    "LLM_TIMEOUT",
	ErrCodeLLMSynthesisFailed:            "LLM_SYNTHESIS_FAILED",
	ErrCodeEmbeddingFailed:               "EMBEDDING_FAILED",
	ErrCodeElasticsearchConnectionFailed: "SEARCH_UNAVAILABLE",
	ErrCodeSearchQueryFailed:             "SEARCH_UNAVAILABLE",
	ErrCodeSearchTimeout:                 "SEARCH_UNAVAILABLE",
	ErrCodeIndexNotFound:                 "INDEX_NOT_FOUND",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeLLMSynthesisFailed,
		ErrCodeEmbeddingFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeIndexingFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed:
		return 3

	case ErrCodeIntentParsingFailed,
		ErrCodeSearchTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INTENT") || strings.Contains(codeStr, "MODE") || strings.Contains(codeStr, "SEMANTIC"):
		return "ROUTING"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "EMBEDDING"):
		return "AI"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
