package store

import (
	"testing"

	"github.com/iov-one/harvest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func levelStore(t *testing.T) (harvest.CacheableKVStore, func()) {
	s, err := MemLevelStore()
	require.NoError(t, err)
	return s, func() { s.Close() }
}

func TestLevelStoreGetSet(t *testing.T) {
	suiteGetSet(t, levelStore)
}

func TestLevelStoreNestedCache(t *testing.T) {
	suiteNestedCache(t, levelStore)
}

func TestLevelStoreIterator(t *testing.T) {
	suiteIterator(t, levelStore)
}

func TestLevelStorePersists(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenLevelStore(dir)
	require.NoError(t, err)
	cache := s.CacheWrap()
	require.NoError(t, cache.Set([]byte("state"), []byte("42")))
	require.NoError(t, cache.Write())
	require.NoError(t, s.Close())

	s, err = OpenLevelStore(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get([]byte("state"))
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), got)
}
