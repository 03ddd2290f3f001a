package session

import "sync"

// MockStore is an in-memory Store with error injection for tests.
type MockStore struct {
	sessions map[string]Session
	mu       sync.RWMutex

	SaveError   error
	LoadError   error
	DeleteError error
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{sessions: make(map[string]Session)}
}

func (m *MockStore) Save(s *Session) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if s == nil || s.Username == "" {
		return ErrInvalidSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Username] = *s
	return nil
}

func (m *MockStore) Load(username string) (*Session, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MockStore) Delete(username string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[username]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, username)
	return nil
}

// Count returns the number of stored sessions.
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
