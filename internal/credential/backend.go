package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

// KeyringBackend stores credentials in the platform keychain
// (macOS Keychain, Windows Credential Manager, Secret Service on Linux).
type KeyringBackend struct{}

// Get implements Backend.
func (KeyringBackend) Get(service, account string) (string, error) {
	value, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return value, err
}

// Set implements Backend.
func (KeyringBackend) Set(service, account, value string) error {
	return keyring.Set(service, account, value)
}

// Delete implements Backend.
func (KeyringBackend) Delete(service, account string) error {
	err := keyring.Delete(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// FileBackend stores each credential in its own owner-only file under Dir.
type FileBackend struct {
	Dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("credential directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}
	return &FileBackend{Dir: dir}, nil
}

// Get implements Backend.
func (b *FileBackend) Get(service, account string) (string, error) {
	data, err := os.ReadFile(b.path(service, account))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Set implements Backend.
func (b *FileBackend) Set(service, account, value string) error {
	path := b.path(service, account)

	tmp, err := os.CreateTemp(b.Dir, ".cred-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}

// Delete implements Backend.
func (b *FileBackend) Delete(service, account string) error {
	err := os.Remove(b.path(service, account))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (b *FileBackend) path(service, account string) string {
	clean := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return filepath.Join(b.Dir, clean.Replace(service)+"."+clean.Replace(account)+".cred")
}

// MemoryBackend keeps credentials in process memory.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]string)}
}

// Get implements Backend.
func (b *MemoryBackend) Get(service, account string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	value, ok := b.entries[service+"/"+account]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set implements Backend.
func (b *MemoryBackend) Set(service, account, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[service+"/"+account] = value
	return nil
}

// Delete implements Backend.
func (b *MemoryBackend) Delete(service, account string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := service + "/" + account
	if _, ok := b.entries[key]; !ok {
		return ErrNotFound
	}
	delete(b.entries, key)
	return nil
}

// Len returns the number of stored entries.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
