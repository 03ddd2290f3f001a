package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"instabot/pkg/models"
)

// Memory is a HistoryStore kept entirely in process memory.
type Memory struct {
	mu         sync.RWMutex
	followed   map[string]models.FollowRecord
	unfollowed map[string]models.UnfollowRecord
	liked      []models.LikedPhotoRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		followed:   make(map[string]models.FollowRecord),
		unfollowed: make(map[string]models.UnfollowRecord),
	}
}

func (m *Memory) AddFollowed(_ context.Context, rec models.FollowRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followed[rec.Username] = rec
	return nil
}

func (m *Memory) AddUnfollowed(_ context.Context, rec models.UnfollowRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unfollowed[rec.Username] = rec
	return nil
}

func (m *Memory) AddLiked(_ context.Context, rec models.LikedPhotoRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liked = append(m.liked, rec)
	return nil
}

func (m *Memory) GetFollowed(_ context.Context, username string) (*models.FollowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.followed[username]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) GetUnfollowed(_ context.Context, username string) (*models.UnfollowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.unfollowed[username]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) ListFollowed(_ context.Context) ([]models.FollowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedFollowed(m.followed), nil
}

func (m *Memory) ListFollowedSince(ctx context.Context, since time.Time) ([]models.FollowRecord, error) {
	all, _ := m.ListFollowed(ctx)
	return followedSince(all, since), nil
}

func (m *Memory) ListUnfollowedSince(_ context.Context, since time.Time) ([]models.UnfollowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return unfollowedSince(sortedUnfollowed(m.unfollowed), since), nil
}

func (m *Memory) ListLikedSince(_ context.Context, since time.Time) ([]models.LikedPhotoRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return likedSince(m.liked, since), nil
}

func (m *Memory) Close() error { return nil }

func sortedFollowed(byName map[string]models.FollowRecord) []models.FollowRecord {
	out := make([]models.FollowRecord, 0, len(byName))
	for _, r := range byName {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func sortedUnfollowed(byName map[string]models.UnfollowRecord) []models.UnfollowRecord {
	out := make([]models.UnfollowRecord, 0, len(byName))
	for _, r := range byName {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
