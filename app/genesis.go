package app

import (
	"encoding/json"
	"os"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
)

// Genesis file format.
type Genesis struct {
	// Self is the account the harvester operates as.
	Self       harvest.AccountID `json:"self"`
	AppOptions harvest.Options   `json:"app_options"`
}

// LoadGenesis tries to load a given file into a Genesis struct
func LoadGenesis(filePath string) (Genesis, error) {
	var gen Genesis
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return gen, errors.Wrapf(errors.ErrInput, "loading genesis file: %s", err)
	}
	if err := json.Unmarshal(raw, &gen); err != nil {
		return gen, errors.Wrapf(errors.ErrInput, "unmarshaling genesis file: %s", err)
	}
	if err := gen.Self.Validate(); err != nil {
		return gen, errors.Wrap(err, "self")
	}
	return gen, nil
}

const selfKey = "_app:self"

// LoadSelf returns the account stored at initialization, empty if the
// store was never initialized.
func LoadSelf(db harvest.ReadOnlyKVStore) (harvest.AccountID, error) {
	raw, err := db.Get([]byte(selfKey))
	if err != nil {
		return "", err
	}
	return harvest.AccountID(raw), nil
}

// InitStore initializes an empty store from the genesis. It is an error to
// initialize a store twice.
func InitStore(db harvest.CacheableKVStore, gen Genesis, head harvest.Head, init harvest.Initializer) error {
	self, err := LoadSelf(db)
	if err != nil {
		return err
	}
	if self != "" {
		return errors.Wrapf(errors.ErrDuplicate, "store already initialized for %s", self)
	}
	info, err := harvest.NewBlockInfo(head, gen.Self, nil)
	if err != nil {
		return err
	}

	cache := db.CacheWrap()
	defer cache.Discard()
	if err := cache.Set([]byte(selfKey), []byte(gen.Self)); err != nil {
		return err
	}
	if err := init.FromGenesis(gen.AppOptions, info, cache); err != nil {
		return errors.Wrap(err, "genesis")
	}
	return cache.Write()
}
