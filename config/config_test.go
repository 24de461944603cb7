package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrelay/modelrelay"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"MODELRELAY_DATA_DIR", "MODELRELAY_CATALOG_DIR", "X402_PRIVATE_KEY", "X402_GATEWAY_URL"} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(cfg.DataDir, ".modelrelay"))
	assert.Equal(t, "catalogs", cfg.CatalogDir)
	assert.False(t, cfg.X402Enabled())
	assert.Nil(t, cfg.X402Options())
}

func TestLoadSettingsFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"data_dir: /var/lib/modelrelay\ncatalog_dir: /etc/modelrelay/catalogs\nx402_private_key: 0xabc\n"), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/modelrelay", cfg.DataDir)
	assert.Equal(t, "/etc/modelrelay/catalogs", cfg.CatalogDir)
	assert.True(t, cfg.X402Enabled())

	opts := cfg.X402Options()
	require.NotNil(t, opts)
	assert.Equal(t, DefaultX402GatewayURL, opts.GatewayURL, "no override falls back to the default gateway")
	assert.Equal(t, "0xabc", opts.PrivateKey)
}

func TestLoadMissingSettingsFileUsesDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, "catalogs", cfg.CatalogDir)
}

func TestLoadMalformedSettingsFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed"), 0o600))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.True(t, modelrelay.IsConfigurationError(err))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MODELRELAY_DATA_DIR", "/env/data")
	t.Setenv("X402_PRIVATE_KEY", "0xenv")
	t.Setenv("X402_GATEWAY_URL", "https://gateway.env/v1/messages")

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"data_dir: /file/data\nx402_private_key: 0xfile\n"), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/env/data", cfg.DataDir)
	assert.Equal(t, "0xenv", cfg.X402PrivateKey)

	opts := cfg.X402Options()
	require.NotNil(t, opts)
	assert.Equal(t, "https://gateway.env/v1/messages", opts.GatewayURL)
}
