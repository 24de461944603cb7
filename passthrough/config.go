// Package passthrough forwards canonical requests to upstream providers
// using each provider's native wire format and auth scheme. Providers are
// described by declarative catalog files, one per endpoint family; handlers
// are created lazily per provider and cached for the process lifetime.
package passthrough

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modelrelay/modelrelay"
)

// Family identifies an upstream endpoint family. Each family has its own
// catalog file and wire conventions.
type Family string

const (
	FamilyChatCompletions Family = "chat_completions"
	FamilyMessages        Family = "messages"
	FamilyResponses       Family = "responses"
)

// Families lists every endpoint family in catalog load order.
var Families = []Family{FamilyChatCompletions, FamilyMessages, FamilyResponses}

// AuthConfig describes how to authenticate against an upstream endpoint.
// Template, when set, wins over Scheme and formats the credential with a
// single %s verb.
type AuthConfig struct {
	EnvVar   string `json:"env_var"`
	Header   string `json:"header"`
	Scheme   string `json:"scheme,omitempty"`
	Template string `json:"template,omitempty"`
}

// UsageConfig tags which usage field layout the endpoint reports.
type UsageConfig struct {
	Format string `json:"format"` // "openai", "anthropic" or "responses"
}

// EndpointConfig is one provider's configuration for one endpoint family.
type EndpointConfig struct {
	BaseURL                string            `json:"base_url"`
	Auth                   *AuthConfig       `json:"auth,omitempty"`
	StaticHeaders          map[string]string `json:"static_headers,omitempty"`
	SupportedClientFormats []string          `json:"supported_client_formats,omitempty"`
	PayloadDefaults        map[string]any    `json:"payload_defaults,omitempty"`
	Usage                  *UsageConfig      `json:"usage,omitempty"`
	ForceStreamOption      bool              `json:"force_stream_option,omitempty"`
}

// Definition is one provider's resolved passthrough configuration for one
// family, as consumed by the registry and handlers.
type Definition struct {
	Provider    string
	Family      Family
	Models      []string
	Endpoint    EndpointConfig
	X402Enabled bool
}

// SupportsClientFormat reports whether the endpoint accepts the given client
// wire format. An empty list means the provider's native format only.
func (d *Definition) SupportsClientFormat(format string) bool {
	for _, f := range d.Endpoint.SupportedClientFormats {
		if f == format {
			return true
		}
	}
	return false
}

// catalogFile is the on-disk shape: one file per family, each provider entry
// keyed by the family name.
type catalogFile struct {
	Providers []catalogEntry `json:"providers"`
}

type catalogEntry struct {
	Provider        string          `json:"provider"`
	Models          []string        `json:"models,omitempty"`
	ChatCompletions *EndpointConfig `json:"chat_completions,omitempty"`
	Messages        *EndpointConfig `json:"messages,omitempty"`
	Responses       *EndpointConfig `json:"responses,omitempty"`
}

func (e *catalogEntry) endpoint(family Family) *EndpointConfig {
	switch family {
	case FamilyChatCompletions:
		return e.ChatCompletions
	case FamilyMessages:
		return e.Messages
	case FamilyResponses:
		return e.Responses
	default:
		return nil
	}
}

// X402Options enables payment-gateway mode: every messages-family provider is
// rewritten to the gateway URL with static auth dropped, so payment
// authorization substitutes uniformly for API-key authorization.
type X402Options struct {
	GatewayURL string
}

// LoadDefinitions reads one family's catalog file from dir. A missing file
// yields an empty provider list; that is an expected deployment state, not an
// error. A present-but-malformed file is a configuration error.
func LoadDefinitions(dir string, family Family, x402 *X402Options, logger *slog.Logger) ([]Definition, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path := filepath.Join(dir, string(family)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("provider catalog not found, no providers configured",
				"family", string(family), "path", path)
			return nil, nil
		}
		return nil, modelrelay.NewConfigurationError("read catalog " + path + ": " + err.Error())
	}

	var catalog catalogFile
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, modelrelay.NewConfigurationError("parse catalog " + path + ": " + err.Error())
	}

	defs := make([]Definition, 0, len(catalog.Providers))
	for _, entry := range catalog.Providers {
		endpoint := entry.endpoint(family)
		if entry.Provider == "" || endpoint == nil {
			continue
		}
		def := Definition{
			Provider: entry.Provider,
			Family:   family,
			Models:   entry.Models,
			Endpoint: *endpoint,
		}
		if x402 != nil && family == FamilyMessages {
			def.Endpoint.BaseURL = x402.GatewayURL
			def.Endpoint.Auth = nil
			def.X402Enabled = true
			logger.Info("x402 mode: provider rewritten to payment gateway",
				"provider", def.Provider, "gateway", x402.GatewayURL)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
