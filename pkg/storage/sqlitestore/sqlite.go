// Package sqlitestore implements the history store on SQLite through gorm.
package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"instabot/pkg/models"
)

type followRow struct {
	Username string `gorm:"primaryKey"`
	At       int64  `gorm:"index;not null"`
	Failed   bool
}

func (followRow) TableName() string { return "followed" }

type unfollowRow struct {
	Username      string `gorm:"primaryKey"`
	At            int64  `gorm:"index;not null"`
	NoActionTaken bool
}

func (unfollowRow) TableName() string { return "unfollowed" }

type likedRow struct {
	ID       uint   `gorm:"primaryKey"`
	Username string `gorm:"index;not null"`
	Href     string `gorm:"not null"`
	At       int64  `gorm:"index;not null"`
}

func (likedRow) TableName() string { return "liked_photos" }

// Store is a HistoryStore in a SQLite database file.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite history: %w", err)
	}

	if err := db.AutoMigrate(&followRow{}, &unfollowRow{}, &likedRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite history: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) AddFollowed(ctx context.Context, rec models.FollowRecord) error {
	row := followRow{Username: rec.Username, At: rec.Time.UnixNano(), Failed: rec.Failed}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *Store) AddUnfollowed(ctx context.Context, rec models.UnfollowRecord) error {
	row := unfollowRow{Username: rec.Username, At: rec.Time.UnixNano(), NoActionTaken: rec.NoActionTaken}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *Store) AddLiked(ctx context.Context, rec models.LikedPhotoRecord) error {
	row := likedRow{Username: rec.Username, Href: rec.Href, At: rec.Time.UnixNano()}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetFollowed(ctx context.Context, username string) (*models.FollowRecord, error) {
	var row followRow
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := row.record()
	return &rec, nil
}

func (s *Store) GetUnfollowed(ctx context.Context, username string) (*models.UnfollowRecord, error) {
	var row unfollowRow
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := row.record()
	return &rec, nil
}

func (s *Store) ListFollowed(ctx context.Context) ([]models.FollowRecord, error) {
	return s.ListFollowedSince(ctx, time.Time{})
}

func (s *Store) ListFollowedSince(ctx context.Context, since time.Time) ([]models.FollowRecord, error) {
	var rows []followRow
	if err := s.db.WithContext(ctx).Where("at > ?", sinceNanos(since)).Order("at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.FollowRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

func (s *Store) ListUnfollowedSince(ctx context.Context, since time.Time) ([]models.UnfollowRecord, error) {
	var rows []unfollowRow
	if err := s.db.WithContext(ctx).Where("at > ?", sinceNanos(since)).Order("at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.UnfollowRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

func (s *Store) ListLikedSince(ctx context.Context, since time.Time) ([]models.LikedPhotoRecord, error) {
	var rows []likedRow
	if err := s.db.WithContext(ctx).Where("at > ?", sinceNanos(since)).Order("at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.LikedPhotoRecord, len(rows))
	for i, r := range rows {
		out[i] = models.LikedPhotoRecord{Username: r.Username, Href: r.Href, Time: time.Unix(0, r.At).UTC()}
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// sinceNanos maps the zero time to the smallest value so that "since the
// beginning" includes every record.
func sinceNanos(since time.Time) int64 {
	if since.IsZero() {
		return -1 << 62
	}
	return since.UnixNano()
}

func (r followRow) record() models.FollowRecord {
	return models.FollowRecord{Username: r.Username, Time: time.Unix(0, r.At).UTC(), Failed: r.Failed}
}

func (r unfollowRow) record() models.UnfollowRecord {
	return models.UnfollowRecord{Username: r.Username, Time: time.Unix(0, r.At).UTC(), NoActionTaken: r.NoActionTaken}
}
