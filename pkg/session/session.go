// Package session persists the logged-in web session the client
// authenticates with.
//
// Sessions are looked up through a chain of stores: the system keyring,
// then an encrypted file, then any cookies supplied through configuration.
// Clearing a session removes it from every writable store so that the next
// run has to be given fresh cookies.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"instabot/pkg/logger"
)

// Session holds the cookies of a logged-in web session.
type Session struct {
	Username  string    `json:"username"`
	SessionID string    `json:"session_id"`
	CSRFToken string    `json:"csrf_token"`
	UserAgent string    `json:"user_agent,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// Validate checks that the session carries the cookies every request needs.
func (s *Session) Validate() error {
	switch {
	case s == nil || s.Username == "":
		return errors.New("username is required")
	case s.SessionID == "":
		return errors.New("session ID is required")
	case s.CSRFToken == "":
		return errors.New("CSRF token is required")
	}
	return nil
}

// Masked returns a copy with the cookies obscured for display.
func (s *Session) Masked() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.SessionID = maskString(s.SessionID)
	c.CSRFToken = maskString(s.CSRFToken)
	return &c
}

// Store is one place sessions can be kept.
type Store interface {
	// Save persists s, replacing any session for the same username.
	Save(s *Session) error
	// Load returns the session for username or ErrNotFound.
	Load(username string) (*Session, error)
	// Delete removes the session for username or returns ErrNotFound.
	Delete(username string) error
}

var (
	ErrNotFound         = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Manager reads and writes sessions across a fallback chain of stores.
type Manager struct {
	stores []Store
	logger logger.Logger
	now    func() time.Time
}

// NewManager builds a manager over stores, tried in order.
func NewManager(log logger.Logger, stores ...Store) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{stores: stores, logger: log, now: time.Now}
}

// NewDefaultManager chains the system keyring (when usable), the encrypted
// file under the config directory and the fallback session, if any.
func NewDefaultManager(log logger.Logger, fallback *Session) (*Manager, error) {
	var stores []Store

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	dir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	fs, err := NewEncryptedFileStore(filepath.Join(dir, "sessions.enc"), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fs)

	if fallback != nil && fallback.SessionID != "" {
		stores = append(stores, NewStaticStore(fallback))
	}

	return NewManager(log, stores...), nil
}

// Save stores s in the first store that accepts it.
func (m *Manager) Save(s *Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	s.SavedAt = m.now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Save(s)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to save session: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Load returns the session from the first store that has it.
func (m *Manager) Load(username string) (*Session, error) {
	for _, store := range m.stores {
		s, err := store.Load(username)
		if err == nil && s != nil {
			return s, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			m.logger.WithError(err).Debug("session store lookup failed")
		}
	}
	return nil, fmt.Errorf("%w for user: %s", ErrNotFound, username)
}

// Clear removes the session for username from every store. A username with
// no saved session is not an error.
func (m *Manager) Clear(username string) error {
	var errs []error
	for _, store := range m.stores {
		err := store.Delete(username)
		if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreUnavailable) {
			continue
		}
		errs = append(errs, err)
	}

	m.logger.WithField("username", username).Info("saved session cleared")
	return errors.Join(errs...)
}

// configDir returns the per-user configuration directory.
func configDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "instabot")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "instabot")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			dir = filepath.Join(xdgConfig, "instabot")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "instabot")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
