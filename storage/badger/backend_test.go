package badger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/unitgraph/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := OpenBackend(path, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	err = backend.View(func(tx *badger.Txn) error { return nil })
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, backend.DeleteKeys(nil), storage.ErrStorageClosed)
}

func TestBackend_KeysAndDeleteKeys(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.Update(func(tx *badger.Txn) error {
		for _, k := range []string{"a:1", "a:2", "a:3", "b:1"} {
			if err := tx.Set([]byte(k), []byte("v")); err != nil {
				return err
			}
		}
		return nil
	}))

	keys, err := backend.Keys([]byte("a:"))
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Equal(t, "a:1", string(keys[0]))

	require.NoError(t, backend.DeleteKeys(keys))

	keys, err = backend.Keys([]byte("a:"))
	require.NoError(t, err)
	assert.Empty(t, keys)

	keys, err = backend.Keys([]byte("b:"))
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestBackend_UpdateErrorDiscards(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	err = backend.Update(func(tx *badger.Txn) error {
		if err := tx.Set([]byte("k"), []byte("v")); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	keys, err := backend.Keys([]byte("k"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestEpisodePrefixesDoNotCollide(t *testing.T) {
	assert.False(t, strings.HasPrefix(string(makeEpisodeKey("ep:1")), string(makeEpisodePrefix("ep"))))
	assert.Equal(t, "g:2:ep:u:00000003", string(makeUnitKey("ep", 3)))
	assert.Equal(t, "g:2:ep:ep", string(makeEpisodeKey("ep")))
}
