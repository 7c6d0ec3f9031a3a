package harvest

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x"
	"github.com/iov-one/harvest/x/swap"
)

// Accounts gives the payout packages access to the reward counters.
type Accounts struct{}

var (
	_ x.Refunder      = Accounts{}
	_ swap.Bookkeeper = Accounts{}
)

// Refund returns amount of a failed payout to the available rewards.
func (Accounts) Refund(db harvest.KVStore, info harvest.BlockInfo, amount coin.Amount) error {
	s, err := loadState(db)
	if err != nil {
		return err
	}
	available, err := s.AvailableRewards.Add(amount)
	if err != nil {
		return errors.Wrap(err, "available rewards")
	}
	s.AvailableRewards = available
	info.Logger().Info("refunded", "amount", amount, "available", available)
	return saveState(db, s)
}

func (Accounts) RecordForwarded(db harvest.KVStore, info harvest.BlockInfo, amount coin.Amount) error {
	s, err := loadState(db)
	if err != nil {
		return err
	}
	total, err := s.SwappedDistributed.Add(amount)
	if err != nil {
		return errors.Wrap(err, "swapped distributed")
	}
	s.SwappedDistributed = total
	return saveState(db, s)
}

func (Accounts) SwapSettings(db harvest.ReadOnlyKVStore) (swap.Settings, error) {
	conf, err := loadConf(db)
	if err != nil {
		return swap.Settings{}, err
	}
	if conf.SwapTarget == "" {
		return swap.Settings{}, errors.Wrap(errors.ErrState, "no swap target configured")
	}
	return swap.Settings{
		Token:        conf.SwapTarget,
		Forward:      conf.Forward(),
		FarmDuration: conf.FarmDuration,
		FarmID:       conf.FarmID,
	}, nil
}
