package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instabot/pkg/config"
	"instabot/pkg/logger"
	"instabot/pkg/models"
	"instabot/pkg/ui"
)

func TestOpenStoreBackends(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{"memory", "json", "sqlite", "badger"} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Instagram.Username = "me"
			cfg.Storage.Backend = backend
			cfg.Storage.Path = t.TempDir()

			store, err := openStore(cfg, logger.NewNopLogger())
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })

			rec := models.FollowRecord{Username: "x", Time: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
			require.NoError(t, store.AddFollowed(ctx, rec))
			got, err := store.GetFollowed(ctx, "x")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, rec.Time.Equal(got.Time))
		})
	}
}

func TestOpenStoreLayout(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.Path = dir

	store, err := openStore(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.FileExists(t, filepath.Join(dir, "history.db"))
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "etcd"
	cfg.Storage.Path = t.TempDir()

	_, err := openStore(cfg, nil)
	assert.ErrorContains(t, err, `unknown storage backend "etcd"`)
}

func TestConfigShowMasksCookies(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("INSTABOT_SESSION_ID", "1234567890%3Aabcdefgh")
	t.Setenv("INSTABOT_CSRF_TOKEN", "")

	var buf bytes.Buffer
	prev := ui.Output
	ui.Output = &buf
	ui.SetColor(false)
	t.Cleanup(func() {
		ui.Output = prev
		ui.SetColor(true)
	})

	rootCmd.SetArgs([]string{"config", "show", "--username", "me", "--storage", "memory"})
	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "username: me")
	assert.Contains(t, out, "backend: memory")
	assert.Contains(t, out, "session_id: 1234...efgh")
	assert.NotContains(t, out, "abcdefgh")
}

func TestParseSeeds(t *testing.T) {
	seeds, err := parseSeeds([]string{"@natgeo", "nasa/", "bbc.earth"})
	require.NoError(t, err)
	assert.Equal(t, []string{"natgeo", "nasa", "bbc.earth"}, seeds)

	_, err = parseSeeds([]string{"not a handle"})
	assert.ErrorContains(t, err, `invalid seed account "not a handle"`)
}
