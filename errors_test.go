package modelrelay

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayErrorFormatting(t *testing.T) {
	err := NewProviderError("anthropic", "upstream exploded")
	assert.Equal(t, "[anthropic:provider] upstream exploded", err.Error())

	err = NewValidationError("model is required")
	assert.Equal(t, "[validation] model is required", err.Error())
}

func TestGatewayErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewErrorWithCause(ErrorTypeInternal, "write key store", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestHTTPErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{429, ErrorTypeRateLimit, true},
		{402, ErrorTypeRateLimit, true},
		{401, ErrorTypeCredential, false},
		{403, ErrorTypeCredential, false},
		{408, ErrorTypeTimeout, true},
		{400, ErrorTypeValidation, false},
		{500, ErrorTypeProvider, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("HTTP %d", tt.status), func(t *testing.T) {
			err := NewHTTPError("openai", tt.status, "body")
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, "body", err.Body)
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsAdapterNotFound(NewAdapterNotFoundError("openai")))
	assert.True(t, IsCredentialUnavailable(NewCredentialError("xai")))
	assert.True(t, IsValidationError(NewValidationError("bad")))
	assert.True(t, IsConfigurationError(NewConfigurationError("missing catalog")))
	assert.True(t, IsRateLimited(NewHTTPError("openai", 429, "")))

	assert.False(t, IsAdapterNotFound(NewValidationError("bad")))
	assert.False(t, IsValidationError(errors.New("plain")))
}

func TestErrorIsMatchesOnType(t *testing.T) {
	err := NewCredentialError("openai")
	require.True(t, errors.Is(err, &GatewayError{Type: ErrorTypeCredential}))
	require.False(t, errors.Is(err, &GatewayError{Type: ErrorTypeProvider}))
}
