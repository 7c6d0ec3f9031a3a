package store

import (
	"testing"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeConstructor returns a fresh store and a cleanup function. The
// functions below are generic to the KVStore interface and are called from
// each implementation's test file.
type storeConstructor func(t *testing.T) (harvest.CacheableKVStore, func())

func assertGetHas(t *testing.T, kv harvest.ReadOnlyKVStore, key, want []byte, wantHas bool) {
	t.Helper()
	got, err := kv.Get(key)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	has, err := kv.Has(key)
	require.NoError(t, err)
	assert.Equal(t, wantHas, has)
}

func suiteGetSet(t *testing.T, makeBase storeConstructor) {
	base, cleanup := makeBase(t)
	defer cleanup()

	k, v := []byte("french"), []byte("fry")
	assertGetHas(t, base, k, nil, false)
	require.NoError(t, base.Set(k, v))
	assertGetHas(t, base, k, v, true)

	// writing more data is only visible in the cache
	cache := base.CacheWrap()
	assertGetHas(t, cache, k, v, true)
	k2, v2 := []byte("LA"), []byte("Dodgers")
	require.NoError(t, cache.Set(k2, v2))
	assertGetHas(t, cache, k2, v2, true)
	assertGetHas(t, base, k2, nil, false)

	require.NoError(t, cache.Write())
	assertGetHas(t, base, k, v, true)
	assertGetHas(t, base, k2, v2, true)

	// discarded changes are never visible
	k3, v3 := []byte("Bayern"), []byte("Munich")
	c2 := base.CacheWrap()
	require.NoError(t, c2.Set(k3, v3))
	c2.Discard()
	assertGetHas(t, base, k3, nil, false)

	// deletes go through
	c3 := base.CacheWrap()
	require.NoError(t, c3.Delete(k))
	assertGetHas(t, c3, k, nil, false)
	assertGetHas(t, base, k, v, true)
	require.NoError(t, c3.Write())
	assertGetHas(t, base, k, nil, false)
	assertGetHas(t, base, k2, v2, true)
}

func suiteNestedCache(t *testing.T, makeBase storeConstructor) {
	base, cleanup := makeBase(t)
	defer cleanup()

	outer := base.CacheWrap()
	require.NoError(t, outer.Set([]byte("a"), []byte("1")))

	inner := outer.CacheWrap()
	require.NoError(t, inner.Set([]byte("a"), []byte("2")))
	require.NoError(t, inner.Delete([]byte("a")))
	require.NoError(t, inner.Set([]byte("b"), []byte("3")))
	require.NoError(t, inner.Write())

	assertGetHas(t, outer, []byte("a"), nil, false)
	assertGetHas(t, outer, []byte("b"), []byte("3"), true)
	assertGetHas(t, base, []byte("b"), nil, false)

	require.NoError(t, outer.Write())
	assertGetHas(t, base, []byte("a"), nil, false)
	assertGetHas(t, base, []byte("b"), []byte("3"), true)
}

func suiteIterator(t *testing.T, makeBase storeConstructor) {
	base, cleanup := makeBase(t)
	defer cleanup()

	for _, k := range []string{"a", "c", "e", "g"} {
		require.NoError(t, base.Set([]byte(k), []byte("base-"+k)))
	}
	cache := base.CacheWrap()
	require.NoError(t, cache.Set([]byte("b"), []byte("cache-b")))
	require.NoError(t, cache.Set([]byte("c"), []byte("cache-c")))
	require.NoError(t, cache.Delete([]byte("e")))

	cases := map[string]struct {
		start, end []byte
		reverse    bool
		want       []Model
	}{
		"full range": {
			want: []Model{
				Pair([]byte("a"), []byte("base-a")),
				Pair([]byte("b"), []byte("cache-b")),
				Pair([]byte("c"), []byte("cache-c")),
				Pair([]byte("g"), []byte("base-g")),
			},
		},
		"bounded range, end exclusive": {
			start: []byte("b"),
			end:   []byte("g"),
			want: []Model{
				Pair([]byte("b"), []byte("cache-b")),
				Pair([]byte("c"), []byte("cache-c")),
			},
		},
		"open end": {
			start: []byte("d"),
			want: []Model{
				Pair([]byte("g"), []byte("base-g")),
			},
		},
		"reverse": {
			end:     []byte("c"),
			reverse: true,
			want: []Model{
				Pair([]byte("b"), []byte("cache-b")),
				Pair([]byte("a"), []byte("base-a")),
			},
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var it harvest.Iterator
			var err error
			if tc.reverse {
				it, err = cache.ReverseIterator(tc.start, tc.end)
			} else {
				it, err = cache.Iterator(tc.start, tc.end)
			}
			require.NoError(t, err)
			defer it.Release()

			var got []Model
			for {
				k, v, err := it.Next()
				if errors.ErrIteratorDone.Is(err) {
					break
				}
				require.NoError(t, err)
				got = append(got, Pair(k, v))
			}
			assert.Equal(t, tc.want, got)
		})
	}
}
