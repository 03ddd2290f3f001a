package badgerstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"instabot/pkg/storage"
	"instabot/pkg/storage/storagetest"
)

func TestBadgerStoreInMemory(t *testing.T) {
	storagetest.Run(t, storagetest.Factory{
		Open: func(t *testing.T) storage.HistoryStore {
			s, err := Open("")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	})
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dirs := map[storage.HistoryStore]string{}
	closed := map[storage.HistoryStore]bool{}

	storagetest.Run(t, storagetest.Factory{
		Open: func(t *testing.T) storage.HistoryStore {
			dir := t.TempDir()
			s, err := Open(dir)
			require.NoError(t, err)
			dirs[s] = dir
			t.Cleanup(func() {
				if !closed[s] {
					_ = s.Close()
				}
			})
			return s
		},
		Reopen: func(t *testing.T, s storage.HistoryStore) storage.HistoryStore {
			require.NoError(t, s.Close())
			closed[s] = true
			reopened, err := Open(dirs[s])
			require.NoError(t, err)
			t.Cleanup(func() { _ = reopened.Close() })
			return reopened
		},
	})
}
