// Package filestore keeps a session in a JSON file so it survives process restarts.
package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cienspay/cienspay-web/session"
	"github.com/natefinch/atomic"
)

var _ session.Store = (*Store)(nil)

// Store is a session.Store backed by a single JSON object on disk.
// Every write replaces the file atomically.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("[filestore New] path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("[filestore New] create directory: %w", err)
	}
	return &Store{path: path}, nil
}

// DefaultPath is $XDG_CONFIG_HOME/cienspay/session.json (or the OS equivalent)
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("[filestore DefaultPath] %w", err)
	}
	return filepath.Join(dir, "cienspay", "session.json"), nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(key session.Key) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

func (s *Store) Set(key session.Key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *Store) Clear(keys ...session.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(values, k)
	}
	if len(values) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("[filestore Clear] remove %s: %w", s.path, err)
		}
		return nil
	}
	return s.save(values)
}

func (s *Store) load() (map[session.Key]string, error) {
	values := make(map[session.Key]string)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[filestore load] read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("[filestore load] decode %s: %w", s.path, err)
	}
	return values, nil
}

func (s *Store) save(values map[session.Key]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("[filestore save] encode: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("[filestore save] write %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("[filestore save] chmod %s: %w", s.path, err)
	}
	return nil
}
