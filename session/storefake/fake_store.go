package storefake

import (
	"sync"

	"github.com/cienspay/cienspay-web/session"
)

var _ session.Store = (*FakeStore)(nil)

// FakeStore is an in-memory session.Store
type FakeStore struct {
	mu     sync.RWMutex
	values map[session.Key]string
}

func NewFakeStore() *FakeStore {
	return &FakeStore{values: make(map[session.Key]string)}
}

func (s *FakeStore) Get(key session.Key) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *FakeStore) Set(key session.Key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *FakeStore) Clear(keys ...session.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Len returns the number of stored keys
func (s *FakeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
