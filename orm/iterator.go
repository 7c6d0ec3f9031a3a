package orm

import (
	"bytes"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
)

// ModelIterator goes over the models of a bucket in key order.
// CONTRACT: No writes may happen within a domain while an iterator exists over it.
type ModelIterator struct {
	it     harvest.Iterator
	bucket ModelBucket
}

// Range returns an iterator over the entities whose keys are in
// [start, end). Nil start means the first key, nil end the last.
func (b ModelBucket) Range(db harvest.ReadOnlyKVStore, start, end []byte) (*ModelIterator, error) {
	return b.iterate(db, start, end, false)
}

// ReverseRange is Range in descending key order.
func (b ModelBucket) ReverseRange(db harvest.ReadOnlyKVStore, start, end []byte) (*ModelIterator, error) {
	return b.iterate(db, start, end, true)
}

func (b ModelBucket) iterate(db harvest.ReadOnlyKVStore, start, end []byte, reverse bool) (*ModelIterator, error) {
	from := b.DBKey(start)
	var to []byte
	if end != nil {
		to = b.DBKey(end)
	} else {
		to = prefixEnd(b.prefix)
	}
	var (
		it  harvest.Iterator
		err error
	)
	if reverse {
		it, err = db.ReverseIterator(from, to)
	} else {
		it, err = db.Iterator(from, to)
	}
	if err != nil {
		return nil, errors.Wrap(err, "iterator")
	}
	return &ModelIterator{it: it, bucket: b}, nil
}

// LoadNext loads the next entity into dest and returns its key, stripped of
// the bucket prefix. ErrIteratorDone is returned when all entities were
// loaded.
func (i *ModelIterator) LoadNext(dest Model) ([]byte, error) {
	key, value, err := i.it.Next()
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(key, i.bucket.prefix) {
		return nil, errors.Wrapf(errors.ErrDatabase, "key %x outside of %s bucket", key, i.bucket.name)
	}
	if err := i.bucket.load(value, dest); err != nil {
		return nil, err
	}
	return key[len(i.bucket.prefix):], nil
}

// Release releases the underlying iterator.
func (i *ModelIterator) Release() {
	i.it.Release()
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
