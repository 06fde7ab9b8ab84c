// Package secrets keeps DataCite and database passwords out of the
// settings files.
package secrets

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// Keyring service names.
const (
	DataCiteService = "GROBI_DataCite"
	DatabaseService = "GROBI_SumarioPMD"
)

// ErrNotFound is returned for a key without a stored secret.
var ErrNotFound = errors.New("secret not found")

// Store holds secrets by key.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// KeyringStore uses the operating system credential manager.
type KeyringStore struct {
	Service string
}

func (k KeyringStore) Get(key string) (string, error) {
	v, err := keyring.Get(k.Service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading %s from keyring: %w", k.Service, err)
	}
	return v, nil
}

func (k KeyringStore) Set(key, value string) error {
	if err := keyring.Set(k.Service, key, value); err != nil {
		return fmt.Errorf("writing %s to keyring: %w", k.Service, err)
	}
	return nil
}

func (k KeyringStore) Delete(key string) error {
	err := keyring.Delete(k.Service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting %s from keyring: %w", k.Service, err)
	}
	return nil
}

// MemoryStore keeps secrets in process memory. The zero value is ready to
// use.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[string]string)
	}
	s.m[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; !ok {
		return ErrNotFound
	}
	delete(s.m, key)
	return nil
}

// DatabaseKey is the secret key of a database password.
func DatabaseKey(host, database, user string) string {
	return host + "|" + database + "|" + user
}
