package modelrelay

import (
	"fmt"
	"net/http"
)

// ErrorType represents different categories of gateway errors.
type ErrorType string

const (
	ErrorTypeConfiguration   ErrorType = "configuration"     // Missing/malformed schema or catalog
	ErrorTypeAdapterNotFound ErrorType = "adapter_not_found" // Unregistered format/provider
	ErrorTypeValidation      ErrorType = "validation"        // Client payload fails schema
	ErrorTypeCredential      ErrorType = "credential"        // No usable key/token
	ErrorTypeProvider        ErrorType = "provider"          // Upstream HTTP failure
	ErrorTypeRateLimit       ErrorType = "rate_limit"        // Upstream rate limiting
	ErrorTypeNetwork         ErrorType = "network"           // Network connectivity errors
	ErrorTypeTimeout         ErrorType = "timeout"           // Timeout errors
	ErrorTypeInternal        ErrorType = "internal"          // Internal gateway errors
)

// GatewayError is a structured, categorized error.
type GatewayError struct {
	Type     ErrorType `json:"type"`
	Message  string    `json:"message"`
	Provider string    `json:"provider,omitempty"`
	Format   string    `json:"format,omitempty"`
	Cause    error     `json:"-"` // Original error, not serialized

	// HTTP details if applicable. Upstream status and body are relayed so
	// callers can surface the provider's own message.
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`

	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Is matches on error type, so errors.Is(err, &GatewayError{Type: X}) works.
func (e *GatewayError) Is(target error) bool {
	if t, ok := target.(*GatewayError); ok {
		return e.Type == t.Type
	}
	return false
}

// NewError creates a GatewayError of the given type.
func NewError(errorType ErrorType, message string) *GatewayError {
	return &GatewayError{
		Type:      errorType,
		Message:   message,
		Retryable: isRetryableByType(errorType),
	}
}

// NewErrorWithCause creates a GatewayError wrapping an underlying cause.
func NewErrorWithCause(errorType ErrorType, message string, cause error) *GatewayError {
	e := NewError(errorType, message)
	e.Cause = cause
	return e
}

// NewConfigurationError reports a missing or malformed schema/catalog. Fatal
// at startup; surfaced as an internal error if discovered lazily per-request.
func NewConfigurationError(message string) *GatewayError {
	return NewError(ErrorTypeConfiguration, message)
}

// NewAdapterNotFoundError reports an unregistered format. This is a
// configuration bug, not a per-request fault.
func NewAdapterNotFoundError(format string) *GatewayError {
	e := NewError(ErrorTypeAdapterNotFound, fmt.Sprintf("no adapter registered for format '%s'", format))
	e.Format = format
	return e
}

// NewValidationError reports a client payload failing validation.
func NewValidationError(message string) *GatewayError {
	return NewError(ErrorTypeValidation, message)
}

// NewCredentialError reports that no usable key or token exists for a
// provider. Distinct from a provider error so callers can present an
// actionable "not configured" message.
func NewCredentialError(provider string) *GatewayError {
	e := NewError(ErrorTypeCredential, fmt.Sprintf("no credential available for provider '%s'", provider))
	e.Provider = provider
	return e
}

// NewProviderError creates a generic upstream provider error.
func NewProviderError(provider, message string) *GatewayError {
	e := NewError(ErrorTypeProvider, message)
	e.Provider = provider
	return e
}

// NewHTTPError wraps an upstream HTTP failure, relaying status and body.
func NewHTTPError(provider string, statusCode int, body string) *GatewayError {
	errorType := classifyHTTPError(statusCode)
	return &GatewayError{
		Type:       errorType,
		Provider:   provider,
		Message:    fmt.Sprintf("upstream returned HTTP %d", statusCode),
		StatusCode: statusCode,
		Body:       body,
		Retryable:  isRetryableByType(errorType),
	}
}

// NewNetworkError creates a network error.
func NewNetworkError(provider string, cause error) *GatewayError {
	return &GatewayError{
		Type:      ErrorTypeNetwork,
		Provider:  provider,
		Message:   cause.Error(),
		Cause:     cause,
		Retryable: true,
	}
}

// classifyHTTPError maps upstream HTTP status codes to error types.
func classifyHTTPError(statusCode int) ErrorType {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode == http.StatusPaymentRequired:
		return ErrorTypeRateLimit
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return ErrorTypeCredential
	case statusCode == http.StatusRequestTimeout:
		return ErrorTypeTimeout
	case statusCode == http.StatusBadRequest:
		return ErrorTypeValidation
	default:
		return ErrorTypeProvider
	}
}

func isRetryableByType(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeProvider:
		return true
	default:
		return false
	}
}

// IsAdapterNotFound checks if the error is an unregistered-adapter error.
func IsAdapterNotFound(err error) bool {
	return hasType(err, ErrorTypeAdapterNotFound)
}

// IsCredentialUnavailable checks if the error is a missing-credential error.
func IsCredentialUnavailable(err error) bool {
	return hasType(err, ErrorTypeCredential)
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsConfigurationError checks if the error is a configuration error.
func IsConfigurationError(err error) bool {
	return hasType(err, ErrorTypeConfiguration)
}

// IsRateLimited checks if the error signals upstream quota/rate exhaustion.
func IsRateLimited(err error) bool {
	return hasType(err, ErrorTypeRateLimit)
}

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	if e, ok := err.(*GatewayError); ok {
		return e.Retryable
	}
	return false
}

func hasType(err error, t ErrorType) bool {
	e, ok := err.(*GatewayError)
	return ok && e.Type == t
}
