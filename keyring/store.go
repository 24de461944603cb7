// Package keyring manages upstream provider credentials: persisted API keys
// with priorities and exhaustion cooldowns, plus an OAuth bearer-token
// fallback for providers that support it.
package keyring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/modelrelay/modelrelay"
)

// Key sources. Environment-seeded keys get a fixed low priority so manually
// registered keys win by default.
const (
	SourceManual = "manual"
	SourceEnv    = "env"
)

// EnvKeyPriority is the priority assigned to environment-seeded keys.
const EnvKeyPriority = 100

// StoredKey is one persisted provider credential. Lower priority values are
// preferred.
type StoredKey struct {
	ID       string    `json:"id"`
	Provider string    `json:"provider"`
	Label    string    `json:"label,omitempty"`
	Key      string    `json:"key"`
	Priority int       `json:"priority"`
	Source   string    `json:"source"`
	AddedAt  time.Time `json:"added_at"`
}

type keysFile struct {
	Keys []StoredKey `json:"keys"`
}

// Store persists keys as a single JSON document. Every mutation is a
// whole-value read-modify-write serialized by an in-process mutex, so
// concurrent requests cannot lose updates.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a key store rooted at dir. The file is created on first
// write.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "keys.json")}
}

// List returns all stored keys sorted by provider then ascending priority.
func (s *Store) List() ([]StoredKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(doc.Keys, func(i, j int) bool {
		if doc.Keys[i].Provider != doc.Keys[j].Provider {
			return doc.Keys[i].Provider < doc.Keys[j].Provider
		}
		return doc.Keys[i].Priority < doc.Keys[j].Priority
	})
	return doc.Keys, nil
}

// ListProvider returns the provider's keys in ascending priority order.
func (s *Store) ListProvider(provider string) ([]StoredKey, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	keys := make([]StoredKey, 0, len(all))
	for _, key := range all {
		if key.Provider == provider {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Add registers a key. Re-adding an environment-seeded key with the same
// provider and material is a no-op, which makes env seeding idempotent.
func (s *Store) Add(provider, label, key string, priority int, source string) (StoredKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return StoredKey{}, err
	}
	if source == SourceEnv {
		for _, existing := range doc.Keys {
			if existing.Provider == provider && existing.Key == key && existing.Source == SourceEnv {
				return existing, nil
			}
		}
	}

	stored := StoredKey{
		ID:       uuid.NewString(),
		Provider: provider,
		Label:    label,
		Key:      key,
		Priority: priority,
		Source:   source,
		AddedAt:  time.Now().UTC(),
	}
	doc.Keys = append(doc.Keys, stored)
	if err := s.write(doc); err != nil {
		return StoredKey{}, err
	}
	return stored, nil
}

// Remove deletes a key by id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	kept := doc.Keys[:0]
	found := false
	for _, key := range doc.Keys {
		if key.ID == id {
			found = true
			continue
		}
		kept = append(kept, key)
	}
	if !found {
		return modelrelay.NewValidationError(fmt.Sprintf("no stored key with id '%s'", id))
	}
	doc.Keys = kept
	return s.write(doc)
}

// UpdatePriority changes a key's priority in place.
func (s *Store) UpdatePriority(id string, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	for i := range doc.Keys {
		if doc.Keys[i].ID == id {
			doc.Keys[i].Priority = priority
			return s.write(doc)
		}
	}
	return modelrelay.NewValidationError(fmt.Sprintf("no stored key with id '%s'", id))
}

func (s *Store) read() (*keysFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &keysFile{}, nil
		}
		return nil, modelrelay.NewErrorWithCause(modelrelay.ErrorTypeInternal, "read key store", err)
	}
	var doc keysFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, modelrelay.NewErrorWithCause(modelrelay.ErrorTypeInternal, "parse key store", err)
	}
	return &doc, nil
}

func (s *Store) write(doc *keysFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return modelrelay.NewErrorWithCause(modelrelay.ErrorTypeInternal, "create data directory", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return modelrelay.NewErrorWithCause(modelrelay.ErrorTypeInternal, "encode key store", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return modelrelay.NewErrorWithCause(modelrelay.ErrorTypeInternal, "write key store", err)
	}
	return nil
}
