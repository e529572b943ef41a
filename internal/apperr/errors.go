// Package apperr defines the error taxonomy shared by the report pipeline.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an AppError.
type Code string

const (
	CodeNetwork             Code = "NETWORK"
	CodeHTTPStatus          Code = "HTTP_STATUS"
	CodeNonJSON             Code = "NON_JSON"
	CodeNormalization       Code = "NORMALIZATION"
	CodeEmptyData           Code = "EMPTY_DATA"
	CodeFallbackUnavailable Code = "FALLBACK_UNAVAILABLE"
	CodeLLMNotConfigured    Code = "LLM_NOT_CONFIGURED"
	CodeLLMCall             Code = "LLM_CALL"
	CodeInvalidConfig       Code = "INVALID_CONFIG"
	CodeStorage             Code = "STORAGE"
	CodeUnknown             Code = "UNKNOWN"
)

// Kind refines network failures.
const (
	KindTimeout    = "timeout"
	KindConnection = "connection"
)

// AppError is the error type returned across package boundaries.
type AppError struct {
	Err        error
	Code       Code
	Message    string
	Kind       string
	StatusCode int
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if e.Kind != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
// A target with a Kind additionally requires the kind to match.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// New creates an AppError without an underlying cause.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError around err.
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Network creates a network failure of the given kind.
func Network(kind string, err error) *AppError {
	return &AppError{Code: CodeNetwork, Message: "upstream request failed", Kind: kind, Err: err}
}

// Status creates a non-2xx response failure.
func Status(code int, body string) *AppError {
	return &AppError{
		Code:       CodeHTTPStatus,
		Message:    fmt.Sprintf("unexpected status %d", code),
		StatusCode: code,
		Err:        errorFromBody(body),
	}
}

func errorFromBody(body string) error {
	if body == "" {
		return nil
	}
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return errors.New(body)
}

// Sentinels usable with errors.Is.
var (
	ErrNetwork             = New(CodeNetwork, "upstream request failed")
	ErrTimeout             = &AppError{Code: CodeNetwork, Kind: KindTimeout}
	ErrHTTPStatus          = New(CodeHTTPStatus, "unexpected status")
	ErrNonJSON             = New(CodeNonJSON, "response is not JSON")
	ErrNormalization       = New(CodeNormalization, "no record list found in payload")
	ErrEmptyData           = New(CodeEmptyData, "no records in window")
	ErrFallbackUnavailable = New(CodeFallbackUnavailable, "no fallback snapshot")
	ErrLLMNotConfigured    = New(CodeLLMNotConfigured, "LLM advisory is not configured")
	ErrLLMCall             = New(CodeLLMCall, "LLM call failed")
	ErrInvalidConfig       = New(CodeInvalidConfig, "invalid configuration")
	ErrStorage             = New(CodeStorage, "storage failure")
)

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// Hint returns operator guidance for an error, naming the likely cause.
func Hint(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "unexpected failure; check the log file for details"
	}

	switch appErr.Code {
	case CodeNetwork:
		if appErr.Kind == KindTimeout {
			return "the upstream did not answer in time; check endpoint reachability or raise REQUEST_TIMEOUT"
		}
		return "the upstream is unreachable; check BASE_DOMAIN and network connectivity"
	case CodeHTTPStatus:
		if appErr.StatusCode == 401 || appErr.StatusCode == 403 {
			return "the upstream rejected the credentials; check AUTHORIZATION and NEW_API_USER"
		}
		if appErr.StatusCode == 404 {
			return "the endpoint was not found; check BASE_DOMAIN points at a new-api deployment"
		}
		return "the upstream returned an error status; check the service health"
	case CodeNonJSON:
		return "the upstream answered with non-JSON content; BASE_DOMAIN may point at a web page or a login wall"
	case CodeNormalization:
		return "the upstream payload has no recognizable record list; credentials may be invalid or probe paths need extending"
	case CodeFallbackUnavailable:
		return "no local snapshot exists yet; one successful fetch is needed before offline reports work"
	case CodeLLMNotConfigured:
		return "set LLM_ENABLED, LLM_BASE_URL, LLM_API_KEY and LLM_MODEL or select a provider"
	case CodeLLMCall:
		return "the language model endpoint failed; check LLM_BASE_URL, LLM_API_KEY and LLM_TIMEOUT"
	case CodeInvalidConfig:
		return "fix the configuration value named above"
	case CodeStorage:
		return "local storage failed; check FALLBACK_PATH or DATABASE_PATH permissions"
	default:
		return "unexpected failure; check the log file for details"
	}
}
