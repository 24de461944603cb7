package modelrelay

import (
	"sort"
	"sync"
)

// providerFormats maps a provider name to the wire format it speaks. Most
// providers expose an OpenAI-compatible surface; the exceptions are listed
// explicitly.
var providerFormats = map[string]string{
	"openai":     "openai",
	"anthropic":  "anthropic",
	"xai":        "openai",
	"groq":       "openai",
	"deepseek":   "openai",
	"mistral":    "openai",
	"openrouter": "openai",
	"gemini":     "openai",
}

// AdapterRegistry maps format identifiers to FormatAdapter implementations.
// Construct one at startup, register every supported format, and inject it
// into the HTTP layer; lookups after that point are read-only and lock-free
// in practice. Clear exists for test isolation only.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters map[string]FormatAdapter
}

// NewAdapterRegistry creates an empty registry.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[string]FormatAdapter)}
}

// Register stores the adapter keyed by its declared format type, overwriting
// any prior registration for that key. Last write wins.
func (r *AdapterRegistry) Register(adapter FormatAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.FormatType()] = adapter
}

// Get returns the adapter for a format type. A missing adapter is a
// configuration error, not a per-request fault: pre-register all supported
// formats at startup and treat this failing as a bug.
func (r *AdapterRegistry) Get(formatType string) (FormatAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[formatType]
	if !ok {
		return nil, NewAdapterNotFoundError(formatType)
	}
	return adapter, nil
}

// GetForProvider resolves a provider name to its wire format and returns that
// format's adapter. Fails like Get when the provider is unmapped or the
// format unregistered.
func (r *AdapterRegistry) GetForProvider(provider string) (FormatAdapter, error) {
	format, ok := providerFormats[provider]
	if !ok {
		return nil, NewAdapterNotFoundError(provider)
	}
	return r.Get(format)
}

// Formats returns the registered format identifiers, sorted.
func (r *AdapterRegistry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]string, 0, len(r.adapters))
	for f := range r.adapters {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// Clear removes every registration. Test harness use only.
func (r *AdapterRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = make(map[string]FormatAdapter)
}
