package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"instabot/pkg/logger"
	"instabot/pkg/models"
)

const (
	followedFile   = "followed.json"
	unfollowedFile = "unfollowed.json"
	likedFile      = "liked-photos.json"
)

// Manager is a HistoryStore backed by three JSON documents in a directory.
// The keyed stores are objects from username to record; the liked store is
// an array. Every mutation rewrites the affected document atomically.
type Manager struct {
	dir        string
	followed   map[string]models.FollowRecord
	unfollowed map[string]models.UnfollowRecord
	liked      []models.LikedPhotoRecord
	mu         sync.RWMutex
	logger     logger.Logger
}

// NewManager opens (or creates) the JSON history in dir.
func NewManager(dir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	m := &Manager{
		dir:        dir,
		followed:   make(map[string]models.FollowRecord),
		unfollowed: make(map[string]models.UnfollowRecord),
		logger:     log,
	}

	if err := m.load(followedFile, &m.followed); err != nil {
		return nil, err
	}
	if err := m.load(unfollowedFile, &m.unfollowed); err != nil {
		return nil, err
	}
	if err := m.load(likedFile, &m.liked); err != nil {
		return nil, err
	}

	m.logger.DebugWithFields("history loaded", map[string]interface{}{
		"dir":        dir,
		"followed":   len(m.followed),
		"unfollowed": len(m.unfollowed),
		"liked":      len(m.liked),
	})

	return m, nil
}

// Dir returns the directory holding the history documents.
func (m *Manager) Dir() string { return m.dir }

// load decodes name into v. A missing file leaves v untouched.
func (m *Manager) load(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// save writes v to name via a synced temporary file and rename.
func (m *Manager) save(name string, v interface{}) error {
	path := filepath.Join(m.dir, name)
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	return nil
}

func (m *Manager) AddFollowed(_ context.Context, rec models.FollowRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, existed := m.followed[rec.Username]
	m.followed[rec.Username] = rec
	if err := m.save(followedFile, m.followed); err != nil {
		if existed {
			m.followed[rec.Username] = prev
		} else {
			delete(m.followed, rec.Username)
		}
		return err
	}
	return nil
}

func (m *Manager) AddUnfollowed(_ context.Context, rec models.UnfollowRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, existed := m.unfollowed[rec.Username]
	m.unfollowed[rec.Username] = rec
	if err := m.save(unfollowedFile, m.unfollowed); err != nil {
		if existed {
			m.unfollowed[rec.Username] = prev
		} else {
			delete(m.unfollowed, rec.Username)
		}
		return err
	}
	return nil
}

func (m *Manager) AddLiked(_ context.Context, rec models.LikedPhotoRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.liked = append(m.liked, rec)
	if err := m.save(likedFile, m.liked); err != nil {
		m.liked = m.liked[:len(m.liked)-1]
		return err
	}
	return nil
}

func (m *Manager) GetFollowed(_ context.Context, username string) (*models.FollowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.followed[username]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Manager) GetUnfollowed(_ context.Context, username string) (*models.UnfollowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.unfollowed[username]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Manager) ListFollowed(_ context.Context) ([]models.FollowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedFollowed(m.followed), nil
}

func (m *Manager) ListFollowedSince(ctx context.Context, since time.Time) ([]models.FollowRecord, error) {
	all, _ := m.ListFollowed(ctx)
	return followedSince(all, since), nil
}

func (m *Manager) ListUnfollowedSince(_ context.Context, since time.Time) ([]models.UnfollowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return unfollowedSince(sortedUnfollowed(m.unfollowed), since), nil
}

func (m *Manager) ListLikedSince(_ context.Context, since time.Time) ([]models.LikedPhotoRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return likedSince(m.liked, since), nil
}

// Close is a no-op; every write is already on disk.
func (m *Manager) Close() error { return nil }

// DataDirectory returns the default per-account history directory for the
// current OS.
func DataDirectory(account string) (string, error) {
	var base string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, "Library", "Application Support", "instabot")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		base = filepath.Join(appData, "instabot")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			base = filepath.Join(xdgDataHome, "instabot")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, ".local", "share", "instabot")
		}
	}

	return filepath.Join(base, account), nil
}
