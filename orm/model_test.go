package orm

import (
	"testing"

	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/harvesttest/assert"
	"github.com/iov-one/harvest/store"
)

type counter struct {
	Count int64 `json:"count"`
}

func (c *counter) Validate() error {
	if c.Count < 0 {
		return errors.Wrap(errors.ErrModel, "negative count")
	}
	return nil
}

func TestModelBucket(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts")

	if err := b.Put(db, []byte("c1"), &counter{Count: 1}); err != nil {
		t.Fatalf("cannot save counter instance: %s", err)
	}

	var c1 counter
	if err := b.One(db, []byte("c1"), &c1); err != nil {
		t.Fatalf("cannot get c1 counter: %s", err)
	}
	if c1.Count != 1 {
		t.Fatalf("unexpected counter state: %d", c1.Count)
	}

	if err := b.Put(db, []byte("c2"), &counter{Count: -1}); !errors.ErrModel.Is(err) {
		t.Fatalf("invalid model must not be saved: %s", err)
	}

	if err := b.Delete(db, []byte("c1")); err != nil {
		t.Fatalf("cannot delete c1 counter: %s", err)
	}
	if err := b.Delete(db, []byte("unknown")); !errors.ErrNotFound.Is(err) {
		t.Fatalf("unexpected error when deleting unexisting instance: %s", err)
	}
	if err := b.One(db, []byte("c1"), &c1); !errors.ErrNotFound.Is(err) {
		t.Fatalf("unexpected error for an unknown model get: %s", err)
	}
}

func TestModelBucketRange(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts")
	other := NewModelBucket("cntsx")

	for i := int64(1); i <= 5; i++ {
		assert.Nil(t, b.Put(db, EncodeSequence(uint64(i)), &counter{Count: i * 10}))
	}
	// Keys of a bucket sharing the name prefix must never leak in.
	assert.Nil(t, other.Put(db, EncodeSequence(3), &counter{Count: 999}))

	cases := map[string]struct {
		Start, End []byte
		Reverse    bool
		Want       []int64
	}{
		"all": {
			Want: []int64{10, 20, 30, 40, 50},
		},
		"bounded": {
			Start: EncodeSequence(2),
			End:   EncodeSequence(4),
			Want:  []int64{20, 30},
		},
		"open end": {
			Start: EncodeSequence(4),
			Want:  []int64{40, 50},
		},
		"reverse": {
			End:     EncodeSequence(3),
			Reverse: true,
			Want:    []int64{20, 10},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var (
				it  *ModelIterator
				err error
			)
			if tc.Reverse {
				it, err = b.ReverseRange(db, tc.Start, tc.End)
			} else {
				it, err = b.Range(db, tc.Start, tc.End)
			}
			assert.Nil(t, err)
			defer it.Release()

			var got []int64
			for {
				var c counter
				key, err := it.LoadNext(&c)
				if errors.ErrIteratorDone.Is(err) {
					break
				}
				assert.Nil(t, err)
				n, err := DecodeSequence(key)
				assert.Nil(t, err)
				assert.Equal(t, int64(n)*10, c.Count)
				got = append(got, c.Count)
			}
			assert.Equal(t, tc.Want, got)
		})
	}
}

func TestBucketName(t *testing.T) {
	assert.Panics(t, func() { NewModelBucket("x") })
	assert.Panics(t, func() { NewModelBucket("With Space") })
	NewModelBucket("unpaid")
}
