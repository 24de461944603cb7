package keyring

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/modelrelay/modelrelay"
)

// expirySafetyMargin retires access tokens before they actually expire, so a
// token that goes stale mid-request never reaches the upstream.
const expirySafetyMargin = 5 * time.Minute

// TokenRefresher exchanges an expiring token for a fresh one. The HTTP layer
// plugs a real refresh flow here; without one, expired tokens simply stop
// being offered.
type TokenRefresher func(provider string, token *oauth2.Token) (*oauth2.Token, error)

type tokensFile struct {
	Tokens map[string]*oauth2.Token `json:"tokens"`
}

// TokenStore persists OAuth tokens per provider in a single JSON document,
// read-modify-write serialized like the key store.
type TokenStore struct {
	mu        sync.Mutex
	path      string
	now       func() time.Time
	refresher TokenRefresher
	logger    *slog.Logger
}

// TokenStoreOption configures a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithTokenRefresher installs a refresh flow.
func WithTokenRefresher(refresher TokenRefresher) TokenStoreOption {
	return func(ts *TokenStore) { ts.refresher = refresher }
}

// WithTokenClock injects a clock, for expiry tests.
func WithTokenClock(now func() time.Time) TokenStoreOption {
	return func(ts *TokenStore) { ts.now = now }
}

// NewTokenStore creates a token store rooted at dir.
func NewTokenStore(dir string, opts ...TokenStoreOption) *TokenStore {
	ts := &TokenStore{
		path:   filepath.Join(dir, "oauth-tokens.json"),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// Token returns the stored token for a provider, or nil when absent.
func (ts *TokenStore) Token(provider string) (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	doc, err := ts.read()
	if err != nil {
		return nil, err
	}
	return doc.Tokens[provider], nil
}

// Save persists a token for a provider.
func (ts *TokenStore) Save(provider string, token *oauth2.Token) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	doc, err := ts.read()
	if err != nil {
		return err
	}
	if doc.Tokens == nil {
		doc.Tokens = make(map[string]*oauth2.Token)
	}
	doc.Tokens[provider] = token
	return ts.write(doc)
}

// Delete removes a provider's token.
func (ts *TokenStore) Delete(provider string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	doc, err := ts.read()
	if err != nil {
		return err
	}
	if _, ok := doc.Tokens[provider]; !ok {
		return nil
	}
	delete(doc.Tokens, provider)
	return ts.write(doc)
}

// AccessToken returns a currently valid bearer token for the provider, or ""
// when none is usable. A token within the safety margin of expiry is
// refreshed when a refresher is installed; refresh failure is logged and
// falls through to "no token" rather than failing the request.
func (ts *TokenStore) AccessToken(provider string) string {
	token, err := ts.Token(provider)
	if err != nil {
		ts.logger.Error("unable to read oauth token store", "provider", provider, "error", err)
		return ""
	}
	if token == nil || token.AccessToken == "" {
		return ""
	}

	if token.Expiry.IsZero() || token.Expiry.Sub(ts.now()) > expirySafetyMargin {
		return token.AccessToken
	}

	if ts.refresher == nil || token.RefreshToken == "" {
		return ""
	}
	refreshed, err := ts.refresher(provider, token)
	if err != nil {
		ts.logger.Error("oauth token refresh failed", "provider", provider, "error", err)
		return ""
	}
	if err := ts.Save(provider, refreshed); err != nil {
		ts.logger.Error("unable to persist refreshed oauth token", "provider", provider, "error", err)
	}
	return refreshed.AccessToken
}

func (ts *TokenStore) read() (*tokensFile, error) {
	data, err := os.ReadFile(ts.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &tokensFile{}, nil
		}
		return nil, modelrelay.NewErrorWithCause(modelrelay.ErrorTypeInternal, "read token store", err)
	}
	var doc tokensFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, modelrelay.NewErrorWithCause(modelrelay.ErrorTypeInternal, "parse token store", err)
	}
	return &doc, nil
}

func (ts *TokenStore) write(doc *tokensFile) error {
	if err := os.MkdirAll(filepath.Dir(ts.path), 0o700); err != nil {
		return modelrelay.NewErrorWithCause(modelrelay.ErrorTypeInternal, "create data directory", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return modelrelay.NewErrorWithCause(modelrelay.ErrorTypeInternal, "encode token store", err)
	}
	if err := os.WriteFile(ts.path, data, 0o600); err != nil {
		return modelrelay.NewErrorWithCause(modelrelay.ErrorTypeInternal, "write token store", err)
	}
	return nil
}
