package orm

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
)

var isBucketName = regexp.MustCompile(`^[a-z_]{3,10}$`).MatchString

// Model is implemented by all entities stored in a bucket.
type Model interface {
	Validate() error
}

// ModelBucket stores models of a single type under a common key prefix.
type ModelBucket struct {
	name   string
	prefix []byte
}

// NewModelBucket returns a bucket storing JSON serialized models. Bucket
// name must be 3 to 10 lower case letters or an underscore.
func NewModelBucket(name string) ModelBucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("Illegal bucket: %s", name))
	}
	return ModelBucket{
		name:   name,
		prefix: append([]byte(name), ':'),
	}
}

// Name returns the name of this bucket.
func (b ModelBucket) Name() string {
	return b.name
}

// DBKey returns the full database key for a model key.
func (b ModelBucket) DBKey(key []byte) []byte {
	return append(append([]byte(nil), b.prefix...), key...)
}

// One loads the model stored under given key into dest. ErrNotFound is
// returned if there is no such entity.
func (b ModelBucket) One(db harvest.ReadOnlyKVStore, key []byte, dest Model) error {
	if key == nil {
		return errors.Wrap(errors.ErrInput, "nil key")
	}
	raw, err := db.Get(b.DBKey(key))
	if err != nil {
		return errors.Wrap(err, "db get")
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s %x", b.name, key)
	}
	return b.load(raw, dest)
}

// Has returns true if an entity is stored under given key.
func (b ModelBucket) Has(db harvest.ReadOnlyKVStore, key []byte) (bool, error) {
	if key == nil {
		return false, errors.Wrap(errors.ErrInput, "nil key")
	}
	return db.Has(b.DBKey(key))
}

// Put validates and saves the model under given key, overwriting any
// previous value.
func (b ModelBucket) Put(db harvest.KVStore, key []byte, m Model) error {
	if key == nil {
		return errors.Wrap(errors.ErrInput, "nil key")
	}
	if err := m.Validate(); err != nil {
		return errors.Wrapf(err, "invalid %s model", b.name)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return errors.Wrapf(errors.ErrModel, "marshal %T: %s", m, err)
	}
	if err := db.Set(b.DBKey(key), raw); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// Delete removes the entity stored under given key. ErrNotFound is
// returned if there is no such entity.
func (b ModelBucket) Delete(db harvest.KVStore, key []byte) error {
	has, err := b.Has(db, key)
	if err != nil {
		return err
	}
	if !has {
		return errors.Wrapf(errors.ErrNotFound, "%s %x", b.name, key)
	}
	return db.Delete(b.DBKey(key))
}

func (b ModelBucket) load(raw []byte, dest Model) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return errors.Wrapf(errors.ErrModel, "unmarshal %T: %s", dest, err)
	}
	return nil
}
