// Package badgerstore implements the history store on an embedded Badger
// database.
//
// Keys:
//
//	f/<username>             followed record
//	u/<username>             unfollowed record
//	l/<unix nanos>/<uuid>    liked photo record
//
// Values are JSON encoded records. SyncWrites is always enabled for on-disk
// databases so that a committed update survives a crash.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"instabot/pkg/models"
)

const (
	prefixFollowed   = "f/"
	prefixUnfollowed = "u/"
	prefixLiked      = "l/"
)

// Store is a HistoryStore in a Badger database.
type Store struct {
	db *badger.DB
}

// Open opens the database in dir. An empty dir opens an in-memory database.
func Open(dir string) (*Store, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}
	opts = opts.WithLogger(nil).WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger history: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) put(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// get decodes key into v and reports whether it existed.
func (s *Store) get(key string, v interface{}) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// scan calls fn with every value under prefix in key order.
func (s *Store) scan(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) AddFollowed(_ context.Context, rec models.FollowRecord) error {
	return s.put(prefixFollowed+rec.Username, rec)
}

func (s *Store) AddUnfollowed(_ context.Context, rec models.UnfollowRecord) error {
	return s.put(prefixUnfollowed+rec.Username, rec)
}

func (s *Store) AddLiked(_ context.Context, rec models.LikedPhotoRecord) error {
	key := fmt.Sprintf("%s%020d/%s", prefixLiked, rec.Time.UnixNano(), uuid.NewString())
	return s.put(key, rec)
}

func (s *Store) GetFollowed(_ context.Context, username string) (*models.FollowRecord, error) {
	var rec models.FollowRecord
	ok, err := s.get(prefixFollowed+username, &rec)
	if !ok {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) GetUnfollowed(_ context.Context, username string) (*models.UnfollowRecord, error) {
	var rec models.UnfollowRecord
	ok, err := s.get(prefixUnfollowed+username, &rec)
	if !ok {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) ListFollowed(ctx context.Context) ([]models.FollowRecord, error) {
	return s.ListFollowedSince(ctx, time.Time{})
}

func (s *Store) ListFollowedSince(_ context.Context, since time.Time) ([]models.FollowRecord, error) {
	var out []models.FollowRecord
	err := s.scan(prefixFollowed, func(val []byte) error {
		var rec models.FollowRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		if rec.Time.After(since) {
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (s *Store) ListUnfollowedSince(_ context.Context, since time.Time) ([]models.UnfollowRecord, error) {
	var out []models.UnfollowRecord
	err := s.scan(prefixUnfollowed, func(val []byte) error {
		var rec models.UnfollowRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		if rec.Time.After(since) {
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (s *Store) ListLikedSince(_ context.Context, since time.Time) ([]models.LikedPhotoRecord, error) {
	var out []models.LikedPhotoRecord
	err := s.scan(prefixLiked, func(val []byte) error {
		var rec models.LikedPhotoRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		if rec.Time.After(since) {
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
