package modelrelay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	format string
}

func (s *stubAdapter) FormatType() string { return s.format }

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewAdapterRegistry()
	adapter := &stubAdapter{format: "openai"}
	registry.Register(adapter)

	got, err := registry.Get("openai")
	require.NoError(t, err)
	assert.Same(t, adapter, got)
}

func TestRegistryLastWriteWins(t *testing.T) {
	registry := NewAdapterRegistry()
	first := &stubAdapter{format: "openai"}
	second := &stubAdapter{format: "openai"}
	registry.Register(first)
	registry.Register(second)

	got, err := registry.Get("openai")
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestRegistryGetUnregistered(t *testing.T) {
	registry := NewAdapterRegistry()
	_, err := registry.Get("anthropic")
	require.Error(t, err)
	assert.True(t, IsAdapterNotFound(err))
}

func TestRegistryClear(t *testing.T) {
	registry := NewAdapterRegistry()
	registry.Register(&stubAdapter{format: "openai"})
	registry.Register(&stubAdapter{format: "anthropic"})
	registry.Clear()

	_, err := registry.Get("openai")
	require.Error(t, err)
	assert.True(t, IsAdapterNotFound(err))
}

func TestRegistryGetForProvider(t *testing.T) {
	registry := NewAdapterRegistry()
	openai := &stubAdapter{format: "openai"}
	anthropic := &stubAdapter{format: "anthropic"}
	registry.Register(openai)
	registry.Register(anthropic)

	tests := []struct {
		provider string
		want     FormatAdapter
	}{
		{"openai", openai},
		{"xai", openai},
		{"groq", openai},
		{"deepseek", openai},
		{"anthropic", anthropic},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			got, err := registry.GetForProvider(tt.provider)
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}

	_, err := registry.GetForProvider("nonexistent")
	require.Error(t, err)
	assert.True(t, IsAdapterNotFound(err))
}

func TestRegistryFormatsSorted(t *testing.T) {
	registry := NewAdapterRegistry()
	registry.Register(&stubAdapter{format: "openai"})
	registry.Register(&stubAdapter{format: "anthropic"})
	assert.Equal(t, []string{"anthropic", "openai"}, registry.Formats())
}
