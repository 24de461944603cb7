package passthrough

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrelay/modelrelay"
)

func writeCatalog(t *testing.T, dir string, family Family, content string) {
	t.Helper()
	path := filepath.Join(dir, string(family)+".json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, FamilyChatCompletions, `{
		"providers": [
			{
				"provider": "groq",
				"models": ["llama-3.3-70b"],
				"chat_completions": {
					"base_url": "https://api.groq.com/openai/v1/chat/completions",
					"auth": {"env_var": "GROQ_API_KEY", "header": "Authorization", "scheme": "Bearer"},
					"usage": {"format": "openai"}
				}
			},
			{
				"provider": "incomplete-no-endpoint"
			}
		]
	}`)

	defs, err := LoadDefinitions(dir, FamilyChatCompletions, nil, nil)
	require.NoError(t, err)
	require.Len(t, defs, 1, "entries without the family endpoint are skipped")

	def := defs[0]
	assert.Equal(t, "groq", def.Provider)
	assert.Equal(t, FamilyChatCompletions, def.Family)
	assert.Equal(t, []string{"llama-3.3-70b"}, def.Models)
	require.NotNil(t, def.Endpoint.Auth)
	assert.Equal(t, "GROQ_API_KEY", def.Endpoint.Auth.EnvVar)
	assert.False(t, def.X402Enabled)
}

func TestLoadDefinitionsMissingFile(t *testing.T) {
	defs, err := LoadDefinitions(t.TempDir(), FamilyMessages, nil, nil)
	require.NoError(t, err, "a missing catalog is an expected deployment state")
	assert.Empty(t, defs)
}

func TestLoadDefinitionsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, FamilyMessages, `{"providers": [`)

	_, err := LoadDefinitions(dir, FamilyMessages, nil, nil)
	require.Error(t, err)
	assert.True(t, modelrelay.IsConfigurationError(err))
}

func TestLoadDefinitionsX402Rewrite(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, FamilyMessages, `{
		"providers": [
			{
				"provider": "anthropic",
				"messages": {
					"base_url": "https://api.anthropic.com/v1/messages",
					"auth": {"env_var": "ANTHROPIC_API_KEY", "header": "x-api-key"}
				}
			},
			{
				"provider": "zai",
				"messages": {
					"base_url": "https://api.z.ai/api/anthropic/v1/messages",
					"auth": {"env_var": "ZAI_API_KEY", "header": "x-api-key"}
				}
			}
		]
	}`)

	gateway := "https://gateway.example/v1/messages"
	defs, err := LoadDefinitions(dir, FamilyMessages, &X402Options{GatewayURL: gateway}, nil)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	for _, def := range defs {
		assert.Equal(t, gateway, def.Endpoint.BaseURL, def.Provider)
		assert.Nil(t, def.Endpoint.Auth, def.Provider)
		assert.True(t, def.X402Enabled, def.Provider)
	}
}

func TestLoadDefinitionsX402LeavesOtherFamiliesAlone(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, FamilyChatCompletions, `{
		"providers": [
			{
				"provider": "openai",
				"chat_completions": {
					"base_url": "https://api.openai.com/v1/chat/completions",
					"auth": {"env_var": "OPENAI_API_KEY", "header": "Authorization", "scheme": "Bearer"}
				}
			}
		]
	}`)

	defs, err := LoadDefinitions(dir, FamilyChatCompletions, &X402Options{GatewayURL: "https://gateway.example"}, nil)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", defs[0].Endpoint.BaseURL)
	assert.NotNil(t, defs[0].Endpoint.Auth)
	assert.False(t, defs[0].X402Enabled)
}

func TestDefinitionSupportsClientFormat(t *testing.T) {
	def := Definition{Endpoint: EndpointConfig{SupportedClientFormats: []string{"openai", "anthropic"}}}
	assert.True(t, def.SupportsClientFormat("anthropic"))
	assert.False(t, def.SupportsClientFormat("responses"))

	empty := Definition{}
	assert.False(t, empty.SupportsClientFormat("openai"))
}
