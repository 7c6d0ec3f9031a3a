package store

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelStore is a durable store backed by a leveldb database. Direct writes
// are applied immediately, writes done through a cache wrap are applied as
// one synced batch.
type LevelStore struct {
	db *leveldb.DB
}

var (
	_ harvest.CacheableKVStore = (*LevelStore)(nil)
	_ harvest.Batcher          = (*LevelStore)(nil)
)

// OpenLevelStore opens or creates a leveldb database in given directory.
func OpenLevelStore(dir string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "open %q: %s", dir, err)
	}
	return &LevelStore{db: db}, nil
}

// MemLevelStore returns a leveldb store kept in memory. Useful for tests.
func MemLevelStore() (*LevelStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return &LevelStore{db: db}, nil
}

// Close releases the database.
func (s *LevelStore) Close() error {
	return s.db.Close()
}

func (s *LevelStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	switch {
	case err == nil:
		return v, nil
	case err == leveldb.ErrNotFound:
		return nil, nil
	default:
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
}

func (s *LevelStore) Has(key []byte) (bool, error) {
	ok, err := s.db.Has(key, nil)
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return ok, nil
}

func (s *LevelStore) Set(key, value []byte) error {
	if err := s.db.Put(key, value, nil); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

func (s *LevelStore) Delete(key []byte) error {
	if err := s.db.Delete(key, nil); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// Apply writes all operations in a single synced batch.
func (s *LevelStore) Apply(ops []harvest.Op) error {
	if len(ops) == 0 {
		return nil
	}
	batch := new(leveldb.Batch)
	for _, op := range ops {
		if op.Delete {
			batch.Delete(op.Key)
		} else {
			batch.Put(op.Key, op.Value)
		}
	}
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// CacheWrap returns a btree cache whose Write is a single atomic batch.
func (s *LevelStore) CacheWrap() harvest.KVCacheWrap {
	return NewBTreeCacheWrap(s, s, nil)
}

func (s *LevelStore) Iterator(start, end []byte) (harvest.Iterator, error) {
	it := s.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	return &levelIterator{it: it}, nil
}

func (s *LevelStore) ReverseIterator(start, end []byte) (harvest.Iterator, error) {
	it := s.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	return &levelIterator{it: it, reverse: true}, nil
}

type levelIterator struct {
	it      iterator.Iterator
	reverse bool
	started bool
}

func (l *levelIterator) Next() (key, value []byte, err error) {
	var ok bool
	switch {
	case !l.started && l.reverse:
		ok = l.it.Last()
	case !l.started:
		ok = l.it.First()
	case l.reverse:
		ok = l.it.Prev()
	default:
		ok = l.it.Next()
	}
	l.started = true

	if !ok {
		if err := l.it.Error(); err != nil {
			return nil, nil, errors.Wrap(errors.ErrDatabase, err.Error())
		}
		return nil, nil, errors.ErrIteratorDone
	}
	// Iterator buffers are reused, the caller must own the returned data.
	key = append([]byte(nil), l.it.Key()...)
	value = append([]byte(nil), l.it.Value()...)
	return key, value, nil
}

func (l *levelIterator) Release() {
	l.it.Release()
}
