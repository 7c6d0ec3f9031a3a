package harvest

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/orm"
)

// State holds the reward counters and the phase of the harvest chain.
type State struct {
	Metadata *harvest.Metadata `json:"metadata"`
	// RewardsReceived is the lifetime total of harvested and donated
	// value.
	RewardsReceived coin.Amount `json:"rewards_received"`
	// AvailableRewards can be released.
	AvailableRewards     coin.Amount      `json:"available_rewards"`
	LastDistributionTime harvest.UnixTime `json:"last_distribution_time"`
	// LastHarvestTime and LastHarvestEpoch mark the start of the last
	// harvest chain that did not fail. They drive the guard.
	LastHarvestTime  harvest.UnixTime `json:"last_harvest_time"`
	LastHarvestEpoch uint64           `json:"last_harvest_epoch"`
	// RunStartTime and RunStartEpoch mark the start of the chain in
	// flight. They become the guard markers when it completes.
	RunStartTime  harvest.UnixTime `json:"run_start_time,omitempty"`
	RunStartEpoch uint64           `json:"run_start_epoch,omitempty"`
	// SwappedDistributed is the lifetime total of forwarded bought asset.
	SwappedDistributed coin.Amount `json:"swapped_distributed"`
	Phase              Phase       `json:"phase"`
	// Awaiting is the promise the current phase waits for. Zero when idle.
	Awaiting uint64 `json:"awaiting,omitempty"`
}

var _ orm.Model = (*State)(nil)

func (s *State) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", s.Metadata.Validate())
	errs = errors.AppendField(errs, "Phase", s.Phase.Validate())
	if err := s.LastDistributionTime.Validate(); err != nil {
		errs = errors.AppendField(errs, "LastDistributionTime", err)
	}
	if err := s.LastHarvestTime.Validate(); err != nil {
		errs = errors.AppendField(errs, "LastHarvestTime", err)
	}
	if err := s.RunStartTime.Validate(); err != nil {
		errs = errors.AppendField(errs, "RunStartTime", err)
	}
	if s.Phase == PhaseIdle && s.Awaiting != 0 {
		errs = errors.AppendField(errs, "Awaiting", errors.Wrap(errors.ErrState, "idle phase cannot await a promise"))
	}
	return errs
}

var stateKey = []byte("state")

// NewStateBucket returns the bucket holding the state singleton.
func NewStateBucket() orm.ModelBucket {
	return orm.NewModelBucket("harvest")
}

func loadState(db harvest.ReadOnlyKVStore) (*State, error) {
	var s State
	if err := NewStateBucket().One(db, stateKey, &s); err != nil {
		return nil, errors.Wrap(err, "load state")
	}
	return &s, nil
}

func saveState(db harvest.KVStore, s *State) error {
	if err := NewStateBucket().Put(db, stateKey, s); err != nil {
		return errors.Wrap(err, "save state")
	}
	return nil
}

// credit adds amount to both the lifetime and the available counters.
func (s *State) credit(amount coin.Amount) error {
	received, err := s.RewardsReceived.Add(amount)
	if err != nil {
		return errors.Wrap(err, "rewards received")
	}
	available, err := s.AvailableRewards.Add(amount)
	if err != nil {
		return errors.Wrap(err, "available rewards")
	}
	s.RewardsReceived, s.AvailableRewards = received, available
	return nil
}
