package credential

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Errors
var (
	ErrNotFound        = errors.New("credential not found")
	ErrEmptyCredential = errors.New("credential is empty")
)

// StoreError reports a failure of the underlying secure storage.
// A missing entry is never reported as a StoreError.
type StoreError struct {
	Op  string // "read", "save" or "clear"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("credential store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Backend is durable storage keyed by (service, account).
// Implementations return ErrNotFound when no entry exists.
type Backend interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
	Delete(service, account string) error
}

// Store holds the bearer credential for one (service, account) key.
// Only one Store should own a given key; its write lock is what keeps
// delete-then-write from interleaving with another writer.
type Store struct {
	backend Backend
	service string
	account string
	logger  *slog.Logger

	writeMu sync.Mutex

	mu     sync.RWMutex
	cached string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store over backend for the given key.
func NewStore(backend Backend, service, account string, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		service: service,
		account: account,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Read returns the stored credential. ok is false when none exists.
func (s *Store) Read() (value string, ok bool, err error) {
	if value, ok := s.cachedValue(); ok {
		return value, true, nil
	}

	// A cache miss waits out any in-flight write so it never observes the
	// gap between delete and write.
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if value, ok := s.cachedValue(); ok {
		return value, true, nil
	}

	value, err = s.backend.Get(s.service, s.account)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StoreError{Op: "read", Err: err}
	}
	if value == "" {
		return "", false, nil
	}

	s.setCache(value)
	return value, true, nil
}

// Save replaces any stored credential with value.
func (s *Store) Save(value string) error {
	if value == "" {
		return &StoreError{Op: "save", Err: ErrEmptyCredential}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.backend.Delete(s.service, s.account); err != nil && !errors.Is(err, ErrNotFound) {
		s.setCache("")
		return &StoreError{Op: "save", Err: fmt.Errorf("delete existing: %w", err)}
	}
	if err := s.backend.Set(s.service, s.account, value); err != nil {
		s.setCache("")
		return &StoreError{Op: "save", Err: err}
	}

	s.setCache(value)
	s.logger.Debug("credential saved", "service", s.service, "account", s.account)

	return nil
}

// Clear removes the credential. Clearing an absent credential succeeds.
func (s *Store) Clear() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.setCache("")

	err := s.backend.Delete(s.service, s.account)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return &StoreError{Op: "clear", Err: err}
	}

	s.logger.Debug("credential cleared", "service", s.service, "account", s.account)
	return nil
}

func (s *Store) cachedValue() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached, s.cached != ""
}

func (s *Store) setCache(value string) {
	s.mu.Lock()
	s.cached = value
	s.mu.Unlock()
}
