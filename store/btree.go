/*
Package store provides the storage layers of the harvester: an in-memory
btree store, cache wraps that group writes to be committed or discarded
together, and a durable leveldb backed store.
*/
package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
)

const (
	// DefaultFreeListSize is the size we hold for free node in btree
	DefaultFreeListSize = btree.DefaultFreeListSize
)

// MemStore returns a simple implementation useful for tests and for
// processes that do not need persistence.
func MemStore() harvest.CacheableKVStore {
	return NewBTreeCacheWrap(EmptyKVStore{}, EmptyKVStore{}, nil)
}

// BTreeCacheWrap places a btree cache over a KVStore. All writes are kept
// in the btree and recorded in order, so that Write can replay them on the
// underlying store.
type BTreeCacheWrap struct {
	bt   *btree.BTree
	free *btree.FreeList
	back harvest.ReadOnlyKVStore
	out  harvest.SetDeleter
	ops  *[]harvest.Op
}

var _ harvest.KVCacheWrap = BTreeCacheWrap{}

// NewBTreeCacheWrap initializes a BTree to cache around the back store.
// All reads that miss the cache go to back, Write sends the recorded
// operations to out. When out implements harvest.Batcher all operations
// are applied atomically.
//
// free may be nil, but set to an existing list to reuse it
// for memory savings
func NewBTreeCacheWrap(back harvest.ReadOnlyKVStore, out harvest.SetDeleter, free *btree.FreeList) BTreeCacheWrap {
	if free == nil {
		free = btree.NewFreeList(DefaultFreeListSize)
	}
	return BTreeCacheWrap{
		bt:   btree.NewWithFreeList(2, free),
		free: free,
		back: back,
		out:  out,
		ops:  new([]harvest.Op),
	}
}

// CacheWrap layers another BTree on top of this one.
func (b BTreeCacheWrap) CacheWrap() harvest.KVCacheWrap {
	return NewBTreeCacheWrap(b, b, b.free)
}

// Write syncs with the underlying store and then cleans up.
func (b BTreeCacheWrap) Write() error {
	ops := *b.ops
	defer b.Discard()

	if batcher, ok := b.out.(harvest.Batcher); ok {
		if err := batcher.Apply(ops); err != nil {
			return errors.Wrap(err, "apply batch")
		}
		return nil
	}
	for _, op := range ops {
		if err := applyOp(b.out, op); err != nil {
			return err
		}
	}
	return nil
}

// Discard invalidates this CacheWrap and releases all data
func (b BTreeCacheWrap) Discard() {
	for b.bt.DeleteMin() != nil {
	}
	*b.ops = nil
}

// Set writes to the BTree and records the operation.
func (b BTreeCacheWrap) Set(key, value []byte) error {
	if key == nil {
		return errors.Wrap(errors.ErrInput, "nil key")
	}
	b.bt.ReplaceOrInsert(newSetItem(key, value))
	*b.ops = append(*b.ops, harvest.Op{Key: key, Value: value})
	return nil
}

// Delete marks the key deleted in the BTree and records the operation.
func (b BTreeCacheWrap) Delete(key []byte) error {
	if key == nil {
		return errors.Wrap(errors.ErrInput, "nil key")
	}
	b.bt.ReplaceOrInsert(newDeletedItem(key))
	*b.ops = append(*b.ops, harvest.Op{Key: key, Delete: true})
	return nil
}

// Apply implements harvest.Batcher so that a cache wrap written into
// another cache wrap keeps the operation order.
func (b BTreeCacheWrap) Apply(ops []harvest.Op) error {
	for _, op := range ops {
		if err := applyOp(b, op); err != nil {
			return err
		}
	}
	return nil
}

// Get reads from btree if there, else backing store
func (b BTreeCacheWrap) Get(key []byte) ([]byte, error) {
	switch t := b.bt.Get(bkey{key}).(type) {
	case nil:
		return b.back.Get(key)
	case setItem:
		return t.value, nil
	case deletedItem:
		return nil, nil
	default:
		return nil, errors.Wrapf(errors.ErrDatabase, "unknown item in btree: %#v", t)
	}
}

// Has reads from btree if there, else backing store
func (b BTreeCacheWrap) Has(key []byte) (bool, error) {
	switch t := b.bt.Get(bkey{key}).(type) {
	case nil:
		return b.back.Has(key)
	case setItem:
		return true, nil
	case deletedItem:
		return false, nil
	default:
		return false, errors.Wrapf(errors.ErrDatabase, "unknown item in btree: %#v", t)
	}
}

// Iterator over a domain of keys in ascending order.
// Combines results from btree and backing store
func (b BTreeCacheWrap) Iterator(start, end []byte) (harvest.Iterator, error) {
	models, err := b.merged(start, end)
	if err != nil {
		return nil, err
	}
	return NewSliceIterator(models), nil
}

// ReverseIterator over a domain of keys in descending order.
// Combines results from btree and backing store
func (b BTreeCacheWrap) ReverseIterator(start, end []byte) (harvest.Iterator, error) {
	models, err := b.merged(start, end)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
		models[i], models[j] = models[j], models[i]
	}
	return NewSliceIterator(models), nil
}

// merged returns all visible key value pairs of the range in ascending
// order. Cached writes shadow the backing store values and deleted items
// hide them.
func (b BTreeCacheWrap) merged(start, end []byte) ([]Model, error) {
	parent, err := b.back.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	defer parent.Release()

	var below []Model
	for {
		k, v, err := parent.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		below = append(below, Model{Key: k, Value: v})
	}

	var above []btree.Item
	collect := func(i btree.Item) bool {
		above = append(above, i)
		return true
	}
	switch {
	case start == nil && end == nil:
		b.bt.Ascend(collect)
	case start == nil:
		b.bt.AscendLessThan(bkey{end}, collect)
	case end == nil:
		b.bt.AscendGreaterOrEqual(bkey{start}, collect)
	default:
		b.bt.AscendRange(bkey{start}, bkey{end}, collect)
	}

	res := make([]Model, 0, len(below)+len(above))
	i, j := 0, 0
	for i < len(below) || j < len(above) {
		var cmp int
		switch {
		case i == len(below):
			cmp = 1
		case j == len(above):
			cmp = -1
		default:
			cmp = bytes.Compare(below[i].Key, above[j].(keyer).Key())
		}

		if cmp < 0 {
			res = append(res, below[i])
			i++
			continue
		}
		if cmp == 0 {
			i++
		}
		if item, ok := above[j].(setItem); ok {
			res = append(res, Model{Key: item.key, Value: item.value})
		}
		j++
	}
	return res, nil
}

func applyOp(out harvest.SetDeleter, op harvest.Op) error {
	if op.Delete {
		return out.Delete(op.Key)
	}
	return out.Set(op.Key, op.Value)
}

/////////////////////////////////////////////////////////
// Items to write to btree

// we enforce all data in our btree implements keyer so we
// can compare nicely
type keyer interface {
	Key() []byte
}

// bkey implements keyer and btree.Item
// and may be used for queries or embedded in data to store
type bkey struct {
	key []byte
}

var _ keyer = bkey{}
var _ btree.Item = bkey{}

func (k bkey) Key() []byte {
	return k.key
}

// Less returns true iff second argument is greater than first
//
// panics if the item to compare doesn't implement keyer.
func (k bkey) Less(item btree.Item) bool {
	cmp := item.(keyer).Key()
	return bytes.Compare(k.key, cmp) < 0
}

type deletedItem struct {
	bkey
}

func newDeletedItem(key []byte) deletedItem {
	return deletedItem{bkey{key}}
}

type setItem struct {
	bkey
	value []byte
}

func newSetItem(key, value []byte) setItem {
	return setItem{bkey{key}, value}
}
