package session

import (
	"encoding/json"
	"fmt"
)

// Manager answers session queries over a Store and is the only writer of session state.
// One Manager is built per store (per request for cookies, per process for files).
type Manager struct {
	store      Store
	adminEmail string
}

func NewManager(store Store, adminEmail string) *Manager {
	return &Manager{store: store, adminEmail: adminEmail}
}

// IsLoggedIn is true iff an access token is present. Expiry and signature are not checked.
func (m *Manager) IsLoggedIn() bool {
	return m.Access() != ""
}

// IsAdmin compares the cached user's email with the configured administrative address.
// The cached user is trusted as is and never re-derived from the access token.
func (m *Manager) IsAdmin() bool {
	u, ok := m.User()
	if !ok || m.adminEmail == "" {
		return false
	}
	return u.Email == m.adminEmail
}

// AdminEmail returns the administrative address the manager compares against
func (m *Manager) AdminEmail() string {
	return m.adminEmail
}

func (m *Manager) Access() string {
	v, _ := m.store.Get(KeyAccess)
	return v
}

func (m *Manager) Refresh() string {
	v, _ := m.store.Get(KeyRefresh)
	return v
}

// User decodes the cached user; a missing or malformed value reads as absent
func (m *Manager) User() (User, bool) {
	raw, ok := m.store.Get(KeyUser)
	if !ok || raw == "" {
		return User{}, false
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, false
	}
	return u, true
}

// Save writes all three session values
func (m *Manager) Save(s Session) error {
	userJSON, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("[session Save] encode user: %w", err)
	}
	if err := m.store.Set(KeyAccess, s.Access); err != nil {
		return fmt.Errorf("[session Save] access: %w", err)
	}
	if err := m.store.Set(KeyRefresh, s.Refresh); err != nil {
		return fmt.Errorf("[session Save] refresh: %w", err)
	}
	if err := m.store.Set(KeyUser, string(userJSON)); err != nil {
		return fmt.Errorf("[session Save] user: %w", err)
	}
	return nil
}

// SetAccess replaces the access token only
func (m *Manager) SetAccess(token string) error {
	if err := m.store.Set(KeyAccess, token); err != nil {
		return fmt.Errorf("[session SetAccess] %w", err)
	}
	return nil
}

// Clear removes every session value
func (m *Manager) Clear() error {
	if err := m.store.Clear(AllKeys...); err != nil {
		return fmt.Errorf("[session Clear] %w", err)
	}
	return nil
}

func (m *Manager) Snapshot() Session {
	u, _ := m.User()
	return Session{Access: m.Access(), Refresh: m.Refresh(), User: u}
}
