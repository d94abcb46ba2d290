// Package keystore holds named secrets such as the scanner API key.
package keystore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// Well-known key names.
const (
	ZapAPIKey  = "ZapApiKey"
	ZapBaseURL = "ZapBaseUrl"
)

// ErrEmptyName is returned when a key name is blank.
var ErrEmptyName = errors.New("key name is required")

// Store reads and writes named secrets. A missing key is reported with
// ok == false, not an error.
type Store interface {
	GetKey(ctx context.Context, name string) (value string, ok bool, err error)
	SetKey(ctx context.Context, name, value string) error
	RemoveKey(ctx context.Context, name string) error
	Keys(ctx context.Context) ([]string, error)
}

// MemoryStore is a Store kept in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store seeded with initial.
func NewMemoryStore(initial map[string]string) *MemoryStore {
	keys := make(map[string]string, len(initial))
	for k, v := range initial {
		keys[k] = v
	}
	return &MemoryStore{keys: keys}
}

func (s *MemoryStore) GetKey(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.keys[name]
	return v, ok, nil
}

func (s *MemoryStore) SetKey(_ context.Context, name, value string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	s.mu.Lock()
	s.keys[name] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) RemoveKey(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.keys, name)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.keys))
	for k := range s.keys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

// Lookup returns the trimmed value of name, treating a blank value as
// missing.
func Lookup(ctx context.Context, s Store, name string) (string, bool, error) {
	v, ok, err := s.GetKey(ctx, name)
	if err != nil || !ok {
		return "", false, err
	}
	v = strings.TrimSpace(v)
	return v, v != "", nil
}
