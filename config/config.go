// Package config loads gateway settings from the environment and an optional
// settings.yaml. Environment variables always win over the file.
package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/modelrelay/modelrelay"
)

// DefaultX402GatewayURL is used when payment-gateway mode is active and no
// override is configured.
const DefaultX402GatewayURL = "https://api.x402.org/v1/messages"

// Config is the resolved application configuration consumed by the
// passthrough and keyring packages.
type Config struct {
	// DataDir holds the credential stores (keys.json, oauth-tokens.json).
	DataDir string `yaml:"data_dir"`

	// CatalogDir holds the per-family provider catalog files.
	CatalogDir string `yaml:"catalog_dir"`

	// X402PrivateKey, when present, activates payment-gateway mode.
	X402PrivateKey string `yaml:"x402_private_key"`

	// X402GatewayURL overrides the payment gateway endpoint.
	X402GatewayURL string `yaml:"x402_gateway_url"`
}

// X402Enabled reports whether payment-gateway mode is active.
func (c *Config) X402Enabled() bool {
	return c.X402PrivateKey != ""
}

// X402Options returns the passthrough rewrite options, or nil when
// payment-gateway mode is off.
func (c *Config) X402Options() *X402 {
	if !c.X402Enabled() {
		return nil
	}
	url := c.X402GatewayURL
	if url == "" {
		url = DefaultX402GatewayURL
	}
	return &X402{GatewayURL: url, PrivateKey: c.X402PrivateKey}
}

// X402 carries the payment-gateway settings.
type X402 struct {
	GatewayURL string
	PrivateKey string
}

// Load resolves configuration: .env (if present), then the optional settings
// file, then environment overrides. A missing .env or settings file is fine;
// a malformed settings file is a configuration error.
func Load(settingsPath string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("unable to load .env", "error", err)
	}

	cfg := &Config{
		DataDir:    defaultDataDir(),
		CatalogDir: "catalogs",
	}

	if settingsPath != "" {
		data, err := os.ReadFile(settingsPath)
		switch {
		case os.IsNotExist(err):
			logger.Debug("settings file not found, using defaults", "path", settingsPath)
		case err != nil:
			return nil, modelrelay.NewConfigurationError("read settings " + settingsPath + ": " + err.Error())
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, modelrelay.NewConfigurationError("parse settings " + settingsPath + ": " + err.Error())
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MODELRELAY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MODELRELAY_CATALOG_DIR"); v != "" {
		cfg.CatalogDir = v
	}
	if v := os.Getenv("X402_PRIVATE_KEY"); v != "" {
		cfg.X402PrivateKey = v
	}
	if v := os.Getenv("X402_GATEWAY_URL"); v != "" {
		cfg.X402GatewayURL = v
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".modelrelay"
	}
	return filepath.Join(home, ".modelrelay")
}
