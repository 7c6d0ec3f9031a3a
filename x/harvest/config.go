package harvest

import (
	"time"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/gconf"
	"github.com/iov-one/harvest/x/feesplit"
)

const confPkg = "harvest"

// Policy selects how the released rewards are paid out.
type Policy string

const (
	PolicyFlat     Policy = "flat"
	PolicyFeeSplit Policy = "feesplit"
	PolicySwap     Policy = "swap"
	PolicyDeferred Policy = "deferred"
)

func (p Policy) Validate() error {
	switch p {
	case PolicyFlat, PolicyFeeSplit, PolicySwap, PolicyDeferred:
		return nil
	case "":
		return errors.Wrap(errors.ErrEmpty, "policy")
	default:
		return errors.Wrapf(errors.ErrInput, "unknown policy %q", string(p))
	}
}

const (
	DefaultRewardWindow      = 3 * 24 * time.Hour
	DefaultFarmDuration      = 7 * 24 * time.Hour
	DefaultUnlockDelayEpochs = 4
)

// Configuration of the harvester.
type Configuration struct {
	Metadata    *harvest.Metadata `json:"metadata"`
	Owner       harvest.AccountID `json:"owner"`
	StakingPool harvest.AccountID `json:"staking_pool"`
	Policy      Policy            `json:"policy"`
	// Beneficiary receives all rewards under the flat policy.
	Beneficiary harvest.AccountID `json:"beneficiary,omitempty"`
	FeeSchedule feesplit.Schedule `json:"fee_schedule,omitempty"`
	// RewardWindow is the time it takes to release all available rewards.
	// Zero releases everything at once.
	RewardWindow harvest.UnixDuration `json:"reward_window"`
	// FarmDuration is the validity of the payload of forwarded assets.
	FarmDuration  harvest.UnixDuration `json:"farm_duration"`
	FarmID        uint64               `json:"farm_id"`
	SwapTarget    harvest.AccountID    `json:"swap_target,omitempty"`
	ForwardTarget harvest.AccountID    `json:"forward_target,omitempty"`
	// GuardInterval and GuardEpochs are the minimum distance between two
	// harvest chains.
	GuardInterval     harvest.UnixDuration `json:"guard_interval"`
	GuardEpochs       uint64               `json:"guard_epochs"`
	UnlockDelayEpochs uint64               `json:"unlock_delay_epochs"`
	// PublicTrigger allows anyone to start a harvest chain or a release.
	PublicTrigger bool `json:"public_trigger"`
}

var _ gconf.OwnedConfig = (*Configuration)(nil)

// NewConfiguration returns a configuration with all defaults set.
func NewConfiguration() *Configuration {
	return &Configuration{
		Metadata:          &harvest.Metadata{Schema: 1},
		RewardWindow:      harvest.AsUnixDuration(DefaultRewardWindow),
		FarmDuration:      harvest.AsUnixDuration(DefaultFarmDuration),
		UnlockDelayEpochs: DefaultUnlockDelayEpochs,
	}
}

func (c *Configuration) GetOwner() harvest.AccountID {
	return c.Owner
}

func (c *Configuration) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", c.Metadata.Validate())
	errs = errors.AppendField(errs, "Owner", c.Owner.Validate())
	errs = errors.AppendField(errs, "StakingPool", c.StakingPool.Validate())
	errs = errors.AppendField(errs, "Policy", c.Policy.Validate())

	switch c.Policy {
	case PolicyFlat:
		errs = errors.AppendField(errs, "Beneficiary", c.Beneficiary.Validate())
	case PolicyFeeSplit:
		errs = errors.AppendField(errs, "FeeSchedule", c.FeeSchedule.Validate())
	case PolicyDeferred:
		if len(c.FeeSchedule) == 0 {
			errs = errors.AppendField(errs, "Beneficiary", c.Beneficiary.Validate())
		}
	case PolicySwap:
		errs = errors.AppendField(errs, "SwapTarget", c.SwapTarget.Validate())
	}
	// Optional fields are validated regardless of the policy.
	if len(c.FeeSchedule) != 0 {
		errs = errors.AppendField(errs, "FeeSchedule", c.FeeSchedule.Validate())
	}
	if c.Beneficiary != "" && c.Policy != PolicyFlat {
		errs = errors.AppendField(errs, "Beneficiary", c.Beneficiary.Validate())
	}
	if c.ForwardTarget != "" {
		errs = errors.AppendField(errs, "ForwardTarget", c.ForwardTarget.Validate())
	}
	if c.SwapTarget != "" && c.Policy != PolicySwap {
		errs = errors.AppendField(errs, "SwapTarget", c.SwapTarget.Validate())
	}

	if c.RewardWindow < 0 {
		errs = errors.AppendField(errs, "RewardWindow", errors.Wrap(errors.ErrInput, "negative"))
	}
	if c.FarmDuration < 0 {
		errs = errors.AppendField(errs, "FarmDuration", errors.Wrap(errors.ErrInput, "negative"))
	}
	if c.GuardInterval < 0 {
		errs = errors.AppendField(errs, "GuardInterval", errors.Wrap(errors.ErrInput, "negative"))
	}
	return errs
}

// Schedule returns the schedule rewards are split with. Flat policy and a
// deferred policy without a schedule pay everything to the beneficiary.
func (c *Configuration) Schedule() feesplit.Schedule {
	if c.Policy == PolicyFlat || len(c.FeeSchedule) == 0 {
		return feesplit.Schedule{{
			Beneficiary: c.Beneficiary,
			Fraction:    harvest.Fraction{Numerator: 1, Denominator: 1},
		}}
	}
	return c.FeeSchedule
}

// Forward returns the receiver of swapped assets.
func (c *Configuration) Forward() harvest.AccountID {
	if c.ForwardTarget != "" {
		return c.ForwardTarget
	}
	return c.StakingPool
}

func loadConf(db gconf.ReadStore) (*Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, confPkg, &conf); err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	return &conf, nil
}
