package gconf

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
)

// Initializer loads the configuration of a single package from the genesis
// "conf" section.
type Initializer struct {
	Pkg string
	// New returns an empty configuration object to decode into.
	New func() Validater
}

var _ harvest.Initializer = Initializer{}

// FromGenesis parses and saves the package configuration.
func (i Initializer) FromGenesis(opts harvest.Options, info harvest.BlockInfo, db harvest.KVStore) error {
	if i.New == nil {
		return errors.Wrapf(errors.ErrState, "no configuration constructor for %q", i.Pkg)
	}
	return InitConfig(db, opts, i.Pkg, i.New())
}
