package harvest

import (
	"time"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x/feesplit"
	"github.com/iov-one/harvest/x/ledger"
	"github.com/iov-one/harvest/x/swap"
)

// releaser pays out the eligible part of the available rewards.
type releaser struct {
	ledger ledger.Ledger
	conv   swap.Converter
}

func newReleaser() releaser {
	return releaser{
		ledger: ledger.New(),
		conv:   swap.NewConverter(Accounts{}),
	}
}

// release debits the eligible amount from the state and issues its payout
// according to the policy. The debited amount is returned, zero means that
// nothing was due. The state is modified in place and must be saved by the
// caller.
func (r releaser) release(db harvest.KVStore, info harvest.BlockInfo, conf *Configuration, s *State) (coin.Amount, error) {
	eligible, err := r.eligible(db, info, conf, s)
	if err != nil {
		return coin.Amount{}, errors.Wrap(err, "eligible amount")
	}
	if eligible.IsZero() {
		return eligible, nil
	}
	available, err := s.AvailableRewards.Sub(eligible)
	if err != nil {
		return coin.Amount{}, errors.Wrap(err, "available rewards")
	}
	s.AvailableRewards = available
	s.LastDistributionTime = info.UnixTime()

	if conf.Policy == PolicySwap {
		if err := r.conv.ConvertAndForward(db, info, eligible); err != nil {
			return coin.Amount{}, errors.Wrap(err, "convert")
		}
		return eligible, nil
	}
	_, residual, err := feesplit.Distribute(db, info, eligible, conf.Schedule())
	if err != nil {
		return coin.Amount{}, errors.Wrap(err, "distribute")
	}
	if !residual.IsZero() {
		info.Logger().Info("rounding residual left undistributed", "residual", residual)
	}
	return eligible, nil
}

// eligible returns the amount that can be released now.
func (r releaser) eligible(db harvest.KVStore, info harvest.BlockInfo, conf *Configuration, s *State) (coin.Amount, error) {
	if conf.Policy == PolicyDeferred {
		return r.due(db, info, s)
	}
	return decayed(s.AvailableRewards, info.UnixTime().Sub(s.LastDistributionTime), conf.RewardWindow.Duration())
}

// decayed returns the part of available proportional to the time elapsed
// within the window.
func decayed(available coin.Amount, elapsed, window time.Duration) (coin.Amount, error) {
	switch {
	case window <= 0 || elapsed >= window:
		return available, nil
	case elapsed <= 0:
		return coin.Amount{}, nil
	}
	return coin.ShareOf(available, uint64(elapsed/time.Second), uint64(window/time.Second))
}

// due collects all ledger entries unlocked at the current epoch. The part
// of the sum that exceeds the available rewards is owed again under the
// current epoch. Available rewards above the whole ledger, such as
// donations and refunds, are due at once.
func (r releaser) due(db harvest.KVStore, info harvest.BlockInfo, s *State) (coin.Amount, error) {
	owed, err := r.ledger.Total(db)
	if err != nil {
		return coin.Amount{}, errors.Wrap(err, "ledger total")
	}
	total, entries, err := r.ledger.Collect(db, info.Epoch())
	if err != nil {
		return coin.Amount{}, errors.Wrap(err, "collect")
	}
	if total.Cmp(s.AvailableRewards) <= 0 {
		if len(entries) > 0 {
			info.Logger().Debug("deferred entries due", "entries", len(entries), "total", total)
		}
		if s.AvailableRewards.Cmp(owed) <= 0 {
			return total, nil
		}
		surplus, err := s.AvailableRewards.Sub(owed)
		if err != nil {
			return coin.Amount{}, err
		}
		info.Logger().Info("rewards above deferred ledger due", "surplus", surplus)
		return total.Add(surplus)
	}
	excess, err := total.Sub(s.AvailableRewards)
	if err != nil {
		return coin.Amount{}, err
	}
	if err := r.ledger.Insert(db, info.Epoch(), excess); err != nil {
		return coin.Amount{}, errors.Wrap(err, "carry over")
	}
	info.Logger().Info("deferred payout exceeds available rewards", "due", total, "carried", excess)
	return s.AvailableRewards, nil
}
