// Package tokenstore persists Vault tokens obtained by "dsvault login" in
// the OS keyring (macOS Keychain, Secret Service, Windows Credential
// Manager), keyed by Vault address and namespace.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service name entries are stored under.
const DefaultService = "dsvault"

// ErrNotFound is returned when no usable token is stored.
var ErrNotFound = errors.New("no stored vault token")

// Entry is a stored login result.
type Entry struct {
	Token     string    `json:"token"`
	Accessor  string    `json:"accessor,omitempty"`
	Method    string    `json:"method"`
	Policies  []string  `json:"policies,omitempty"`
	Renewable bool      `json:"renewable,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// NewEntry builds an entry for a token with the given lease duration. A
// zero ttl means the token never expires.
func NewEntry(method, token, accessor string, policies []string, renewable bool, ttl time.Duration, now time.Time) Entry {
	e := Entry{
		Token:     token,
		Accessor:  accessor,
		Method:    method,
		Policies:  policies,
		Renewable: renewable,
	}
	if ttl > 0 {
		if ttl > expiryBuffer {
			ttl -= expiryBuffer
		}
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

func (e Entry) expiredAt(t time.Time) bool {
	return !e.ExpiresAt.IsZero() && !t.Before(e.ExpiresAt)
}

// Account derives the keyring account for a Vault address and namespace.
func Account(address, namespace string) string {
	address = strings.TrimSuffix(address, "/")
	if namespace == "" {
		return address
	}
	return address + "#" + strings.Trim(namespace, "/")
}

// Store reads and writes entries in the OS keyring with an in-process cache
// in front.
type Store struct {
	service string
	cache   *Cache
}

// New creates a store using DefaultService.
func New() *Store {
	return NewWithService(DefaultService)
}

// NewWithService creates a store under a custom keyring service.
func NewWithService(service string) *Store {
	return &Store{service: service, cache: NewCache()}
}

// Save writes e for account.
func (s *Store) Save(account string, e Entry) error {
	if e.Token == "" {
		return fmt.Errorf("refusing to store an empty token for %s", account)
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode token entry: %w", err)
	}
	if err := keyring.Set(s.service, account, string(raw)); err != nil {
		return fmt.Errorf("failed to write token to keyring: %w", err)
	}
	s.cache.Set(account, e)
	return nil
}

// Load returns the entry for account. Expired entries are removed and
// reported as ErrNotFound.
func (s *Store) Load(account string) (Entry, error) {
	if e, ok := s.cache.Get(account); ok {
		return e, nil
	}

	raw, err := keyring.Get(s.service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("failed to read token from keyring: %w", err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		// Written by something else; treat as absent.
		return Entry{}, ErrNotFound
	}
	if e.Token == "" || e.expiredAt(s.cache.now()) {
		_ = s.Delete(account)
		return Entry{}, ErrNotFound
	}

	s.cache.Set(account, e)
	return e, nil
}

// TTL returns the remaining lifetime of a token already loaded or saved for
// account. Tokens without an expiry report 0 and ok=true.
func (s *Store) TTL(account string) (time.Duration, bool) {
	return s.cache.TTL(account)
}

// Delete removes the entry for account. Deleting a missing entry is not an
// error.
func (s *Store) Delete(account string) error {
	s.cache.Clear(account)
	if err := keyring.Delete(s.service, account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}
