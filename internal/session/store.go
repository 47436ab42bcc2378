package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rootyou/rootyou/internal/crypto"
)

// ErrNoToken is returned by Load when no credential is stored.
var ErrNoToken = errors.New("no stored token")

// Store holds the single bearer credential in a file. Writing a new token
// silently replaces the previous one; there is no multi-session support.
// A write is visible to the next read: the store never caches file contents.
type Store struct {
	mu     sync.Mutex
	path   string
	cipher *crypto.Cipher
	subs   []func(string)
}

// NewStore creates a Store backed by the file at path. cipher may be nil,
// in which case the token is stored in plaintext.
func NewStore(path string, cipher *crypto.Cipher) *Store {
	return &Store{path: path, cipher: cipher}
}

// Save writes the raw token, replacing any existing credential, and notifies
// subscribers.
func (s *Store) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.cipher.Seal(token)
	if err != nil {
		return fmt.Errorf("sealing token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(sealed), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	s.notify(token)
	return nil
}

// Load reads the raw token. Returns ErrNoToken when no credential exists.
func (s *Store) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("reading token file: %w", err)
	}

	token, err := s.cipher.Open(strings.TrimSpace(string(data)))
	if err != nil {
		return "", fmt.Errorf("opening sealed token: %w", err)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Clear removes the stored credential. Clearing an already-empty store is
// not an error. Subscribers are notified with an empty token.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file: %w", err)
	}

	s.notify("")
	return nil
}

// Subscribe registers fn to be called with the new raw token on every Save
// and with an empty string on Clear. Long-running pollers use this to stop
// when the session ends without waiting for their next gate check.
func (s *Store) Subscribe(fn func(token string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// notify must be called with s.mu held.
func (s *Store) notify(token string) {
	for _, fn := range s.subs {
		fn(token)
	}
}
