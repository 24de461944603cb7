package passthrough

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/modelrelay/modelrelay"
)

// DefaultProvider receives models no catalog entry or heuristic claims.
const DefaultProvider = "openai"

// openModelSubstrings route open-weight model families to the groq-hosted
// endpoint when the catalog has no exact entry.
var openModelSubstrings = []string{"llama", "mixtral", "mistral", "qwen", "gemma", "deepseek"}

// Options configures a passthrough registry.
type Options struct {
	// CatalogDir holds the per-family catalog files
	// (chat_completions.json, messages.json, responses.json).
	CatalogDir string

	// X402, when set, activates payment-gateway mode at load time.
	X402 *X402Options

	// Credentials resolves and retires provider credentials. Optional; a nil
	// resolver limits handlers to env-var auth.
	Credentials CredentialResolver

	// Client is the upstream HTTP client. Defaults to NewClient with the
	// default config.
	Client *Client

	Logger *slog.Logger
}

// Registry owns the loaded provider definitions and the lazy handler cache.
// Definitions are immutable after Load; only the handler cache mutates under
// the lock afterwards.
type Registry struct {
	mu       sync.Mutex
	defs     map[Family]map[string]*Definition
	models   map[string]string // lowercased model id -> provider, responses family
	handlers map[string]*Handler

	creds  CredentialResolver
	client *Client
	logger *slog.Logger
}

// NewRegistry creates a registry and loads every family catalog. A missing
// catalog file leaves that family empty; a malformed one fails loading.
func NewRegistry(opts Options) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.Client
	if client == nil {
		client = NewClient(ClientConfig{})
	}

	r := &Registry{
		defs:     make(map[Family]map[string]*Definition),
		models:   make(map[string]string),
		handlers: make(map[string]*Handler),
		creds:    opts.Credentials,
		client:   client,
		logger:   logger,
	}

	for _, family := range Families {
		defs, err := LoadDefinitions(opts.CatalogDir, family, opts.X402, logger)
		if err != nil {
			return nil, err
		}
		byProvider := make(map[string]*Definition, len(defs))
		for i := range defs {
			def := &defs[i]
			byProvider[def.Provider] = def
			if family == FamilyResponses {
				for _, model := range def.Models {
					r.models[strings.ToLower(model)] = def.Provider
				}
			}
		}
		r.defs[family] = byProvider
	}

	return r, nil
}

// Definition returns the loaded definition for a provider in a family.
func (r *Registry) Definition(family Family, provider string) (*Definition, bool) {
	def, ok := r.defs[family][provider]
	return def, ok
}

// Providers returns the provider names configured for a family.
func (r *Registry) Providers(family Family) []string {
	names := make([]string, 0, len(r.defs[family]))
	for name := range r.defs[family] {
		names = append(names, name)
	}
	return names
}

// ResponsesProviderForModel resolves a model id to a provider name. Exact
// catalog matches win; otherwise substring heuristics cover model names that
// appear between catalog updates, and anything unrecognized goes to the
// default provider.
func (r *Registry) ResponsesProviderForModel(model string) string {
	lowered := strings.ToLower(model)
	if provider, ok := r.models[lowered]; ok {
		return provider
	}
	if strings.Contains(lowered, "grok") {
		return "xai"
	}
	for _, marker := range openModelSubstrings {
		if strings.Contains(lowered, marker) {
			return "groq"
		}
	}
	return DefaultProvider
}

// Handler returns the passthrough handler for a provider in a family,
// creating it on first use. An unconfigured provider is a configuration
// condition the HTTP layer maps to "service unavailable for this provider".
func (r *Registry) Handler(family Family, provider string) (*Handler, error) {
	key := string(family) + "/" + provider

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handlers[key]; ok {
		return h, nil
	}
	def, ok := r.defs[family][provider]
	if !ok {
		return nil, modelrelay.NewConfigurationError(
			fmt.Sprintf("provider '%s' not configured for family '%s'", provider, family))
	}
	h := NewHandler(def, r.creds, r.client, r.logger)
	r.handlers[key] = h
	return h, nil
}
