package keyring

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/modelrelay/modelrelay/passthrough"
)

// DefaultCooldown is how long an exhausted key stays retired before becoming
// eligible again without any explicit reset.
const DefaultCooldown = 5 * time.Minute

// oauthProviders is the fixed subset of providers that support interactive
// OAuth. For these, a valid bearer token takes priority over static keys.
var oauthProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
}

// envKeyVars maps each known provider to its conventional API-key variable,
// used for one-time env seeding.
var envKeyVars = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"xai":        "XAI_API_KEY",
	"groq":       "GROQ_API_KEY",
	"deepseek":   "DEEPSEEK_API_KEY",
	"mistral":    "MISTRAL_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"gemini":     "GEMINI_API_KEY",
}

// Manager resolves, rotates and retires provider credentials. It satisfies
// passthrough.CredentialResolver.
//
// Per-key state machine: available, then exhausted on an explicit mark, then
// automatically available again once the cooldown elapses since the
// exhaustion timestamp.
type Manager struct {
	store  *Store
	tokens *TokenStore

	mu        sync.Mutex
	exhausted map[string]time.Time // key id -> exhausted at

	cooldown time.Duration
	now      func() time.Time
	seedOnce sync.Once
	logger   *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCooldown overrides the exhaustion cooldown window.
func WithCooldown(d time.Duration) ManagerOption {
	return func(m *Manager) { m.cooldown = d }
}

// WithClock injects a clock, for cooldown tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithTokenStore attaches an OAuth token store for the bearer-token fallback.
func WithTokenStore(tokens *TokenStore) ManagerOption {
	return func(m *Manager) { m.tokens = tokens }
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a key manager over the given store.
func NewManager(store *Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		exhausted: make(map[string]time.Time),
		cooldown:  DefaultCooldown,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ResolveKey resolves a credential for a provider. Resolution order: a valid
// OAuth token for providers that support it, then stored keys in ascending
// priority skipping exhausted ones. When every key is exhausted the
// highest-priority key is returned anyway: exhaustion is a soft signal, and a
// degraded attempt beats failing the request outright. (nil, nil) means the
// provider has no credential at all.
func (m *Manager) ResolveKey(provider string) (*passthrough.Credential, error) {
	if oauthProviders[provider] && m.tokens != nil {
		if token := m.tokens.AccessToken(provider); token != "" {
			return &passthrough.Credential{Value: token, Source: "oauth"}, nil
		}
	}

	m.seedOnce.Do(m.seedEnvKeys)

	keys, err := m.store.ListProvider(provider)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	for _, key := range keys {
		if m.available(key.ID) {
			return &passthrough.Credential{ID: key.ID, Value: key.Key, Source: "key"}, nil
		}
	}

	best := keys[0]
	m.logger.Warn("all keys exhausted, returning highest-priority key",
		"provider", provider, "key_id", best.ID)
	return &passthrough.Credential{ID: best.ID, Value: best.Key, Source: "key"}, nil
}

// MarkExhausted retires a key until the cooldown window elapses.
func (m *Manager) MarkExhausted(provider, keyID string) {
	if keyID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exhausted[keyID] = m.now()
	m.logger.Info("key marked exhausted", "provider", provider, "key_id", keyID,
		"cooldown", m.cooldown.String())
}

// KeyStatus is a stored key with its current exhaustion state, for
// inspection by the dashboard collaborator.
type KeyStatus struct {
	StoredKey
	Exhausted bool `json:"exhausted"`
}

// Keys lists a provider's keys with exhaustion state, ascending priority.
func (m *Manager) Keys(provider string) ([]KeyStatus, error) {
	keys, err := m.store.ListProvider(provider)
	if err != nil {
		return nil, err
	}
	statuses := make([]KeyStatus, 0, len(keys))
	for _, key := range keys {
		statuses = append(statuses, KeyStatus{
			StoredKey: key,
			Exhausted: !m.available(key.ID),
		})
	}
	return statuses, nil
}

// available reports whether a key is usable, clearing expired cooldowns as a
// side effect.
func (m *Manager) available(keyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.exhausted[keyID]
	if !ok {
		return true
	}
	if m.now().Sub(at) >= m.cooldown {
		delete(m.exhausted, keyID)
		return true
	}
	return false
}

// seedEnvKeys registers environment-declared keys for every known provider.
// Runs at most once per process; the store ignores duplicate env entries, so
// re-seeding is a no-op either way.
func (m *Manager) seedEnvKeys() {
	for provider, envVar := range envKeyVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		if _, err := m.store.Add(provider, "env:"+envVar, value, EnvKeyPriority, SourceEnv); err != nil {
			m.logger.Error("unable to seed environment key", "provider", provider, "error", err)
		}
	}
}
