package passthrough

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrelay/modelrelay"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	writeCatalog(t, dir, FamilyResponses, `{
		"providers": [
			{
				"provider": "openai",
				"models": ["gpt-4o", "GPT-4.1-Mini"],
				"responses": {"base_url": "https://api.openai.com/v1/responses"}
			},
			{
				"provider": "xai",
				"models": ["grok-4"],
				"responses": {"base_url": "https://api.x.ai/v1/responses"}
			}
		]
	}`)
	r, err := NewRegistry(Options{CatalogDir: dir})
	require.NoError(t, err)
	return r
}

func TestResponsesProviderForModel(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o", "openai"},
		{"GPT-4O", "openai"},       // exact matches are case-insensitive
		{"gpt-4.1-mini", "openai"}, // catalog casing does not matter either
		{"grok-4", "xai"},
		{"grok-beta", "xai"}, // substring heuristic, not in the catalog
		{"llama-3.3-70b-versatile", "groq"},
		{"mixtral-8x7b", "groq"},
		{"qwen-2.5-coder", "groq"},
		{"deepseek-r1", "groq"},
		{"totally-unknown-model", "openai"}, // default provider
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ResponsesProviderForModel(tt.model))
		})
	}
}

func TestRegistryDefinitionAndProviders(t *testing.T) {
	r := newTestRegistry(t)

	def, ok := r.Definition(FamilyResponses, "xai")
	require.True(t, ok)
	assert.Equal(t, "xai", def.Provider)

	_, ok = r.Definition(FamilyResponses, "nope")
	assert.False(t, ok)

	providers := r.Providers(FamilyResponses)
	assert.ElementsMatch(t, []string{"openai", "xai"}, providers)
	assert.Empty(t, r.Providers(FamilyMessages))
}

func TestRegistryHandlerLazyCache(t *testing.T) {
	r := newTestRegistry(t)

	first, err := r.Handler(FamilyResponses, "openai")
	require.NoError(t, err)
	second, err := r.Handler(FamilyResponses, "openai")
	require.NoError(t, err)
	assert.Same(t, first, second, "handlers are cached per family/provider")

	other, err := r.Handler(FamilyResponses, "xai")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestRegistryHandlerUnknownProvider(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Handler(FamilyMessages, "anthropic")
	require.Error(t, err)
	assert.True(t, modelrelay.IsConfigurationError(err))
}

func TestRegistryEmptyCatalogDirStillRoutes(t *testing.T) {
	r, err := NewRegistry(Options{CatalogDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "openai", r.ResponsesProviderForModel("gpt-4o"))
	assert.Equal(t, "xai", r.ResponsesProviderForModel("grok-3"))
}
