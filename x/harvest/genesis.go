package harvest

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/gconf"
)

// Initializer constructs the harvester from the genesis "conf.harvest"
// section. Fields missing in the genesis keep their defaults.
type Initializer struct{}

var _ harvest.Initializer = Initializer{}

func (Initializer) FromGenesis(opts harvest.Options, info harvest.BlockInfo, db harvest.KVStore) error {
	ok, err := NewStateBucket().Has(db, stateKey)
	if err != nil {
		return err
	}
	if ok {
		return errors.Wrap(errors.ErrDuplicate, "already constructed")
	}
	conf := gconf.Initializer{
		Pkg: confPkg,
		New: func() gconf.Validater { return NewConfiguration() },
	}
	if err := conf.FromGenesis(opts, info, db); err != nil {
		return err
	}
	s := State{
		Metadata:             &harvest.Metadata{Schema: 1},
		Phase:                PhaseIdle,
		LastDistributionTime: info.UnixTime(),
	}
	if err := saveState(db, &s); err != nil {
		return err
	}
	info.Logger().Info("harvester constructed")
	return nil
}
