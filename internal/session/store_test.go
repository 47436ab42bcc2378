package session

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rootyou/rootyou/internal/crypto"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "token"), nil)
}

func TestStore_SaveLoad(t *testing.T) {
	s := tempStore(t)

	if err := s.Save("token-one"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "token-one" {
		t.Errorf("expected token-one, got %q", got)
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	s := tempStore(t)

	if err := s.Save("old"); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("new"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "new" {
		t.Errorf("a new credential should silently replace the old one, got %q", got)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := tempStore(t)

	if _, err := s.Load(); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestStore_ClearThenLoad(t *testing.T) {
	s := tempStore(t)

	if err := s.Save("tok"); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken after Clear, got %v", err)
	}

	// Clearing an already-empty store is not an error.
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear should be a no-op, got %v", err)
	}
}

func TestStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "token")
	s := NewStore(path, nil)

	if err := s.Save("tok"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected token file mode 0600, got %o", perm)
	}
}

func TestStore_Sealed(t *testing.T) {
	key := hex.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	c, err := crypto.NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	path := filepath.Join(t.TempDir(), "token")
	s := NewStore(path, c)

	if err := s.Save("secret-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(onDisk) == "secret-token" {
		t.Error("token should not be stored in plaintext when a cipher is configured")
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "secret-token" {
		t.Errorf("expected secret-token, got %q", got)
	}
}

func TestStore_Subscribe(t *testing.T) {
	s := tempStore(t)

	var events []string
	s.Subscribe(func(token string) { events = append(events, token) })

	if err := s.Save("tok"); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}

	if len(events) != 2 || events[0] != "tok" || events[1] != "" {
		t.Errorf("expected [tok, \"\"], got %v", events)
	}
}
