package harvest

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x/feesplit"
)

const (
	pathHarvest             = "harvest/run"
	pathOnPing              = "harvest/on_ping"
	pathOnAccount           = "harvest/on_account"
	pathOnWithdraw          = "harvest/on_withdraw"
	pathOnUnstake           = "harvest/on_unstake"
	pathRelease             = "harvest/release"
	pathDonate              = "harvest/donate"
	pathOnDonate            = "harvest/on_donate"
	pathSetFeeSchedule      = "harvest/set_fee_schedule"
	pathSetFarmDuration     = "harvest/set_farm_duration"
	pathSetRewardWindow     = "harvest/set_reward_window"
	pathUpdateConfiguration = "harvest/update_configuration"
)

var (
	_ harvest.Msg = (*HarvestMsg)(nil)
	_ harvest.Msg = (*PingCallbackMsg)(nil)
	_ harvest.Msg = (*AccountCallbackMsg)(nil)
	_ harvest.Msg = (*WithdrawCallbackMsg)(nil)
	_ harvest.Msg = (*UnstakeCallbackMsg)(nil)
	_ harvest.Msg = (*ReleaseMsg)(nil)
	_ harvest.Msg = (*DonateMsg)(nil)
	_ harvest.Msg = (*DonateCallbackMsg)(nil)
	_ harvest.Msg = (*SetFeeScheduleMsg)(nil)
	_ harvest.Msg = (*SetFarmDurationMsg)(nil)
	_ harvest.Msg = (*SetRewardWindowMsg)(nil)
	_ harvest.Msg = (*UpdateConfigurationMsg)(nil)
)

// HarvestMsg starts a harvest chain.
type HarvestMsg struct{}

func (HarvestMsg) Path() string    { return pathHarvest }
func (HarvestMsg) Validate() error { return nil }

// PingCallbackMsg continues the chain after the pool was pinged.
type PingCallbackMsg struct{}

func (PingCallbackMsg) Path() string    { return pathOnPing }
func (PingCallbackMsg) Validate() error { return nil }

// AccountCallbackMsg receives the account snapshot.
type AccountCallbackMsg struct{}

func (AccountCallbackMsg) Path() string    { return pathOnAccount }
func (AccountCallbackMsg) Validate() error { return nil }

// WithdrawCallbackMsg receives the outcome of withdrawing Amount.
type WithdrawCallbackMsg struct {
	Amount coin.Amount `json:"amount"`
	// UnstakeAll is set when staked balance remained at the time of the
	// withdrawal and must be unstaked once it succeeds.
	UnstakeAll bool `json:"unstake_all"`
	// Staked is the balance that remained staked.
	Staked coin.Amount `json:"staked,omitempty"`
}

func (WithdrawCallbackMsg) Path() string { return pathOnWithdraw }

func (m *WithdrawCallbackMsg) Validate() error {
	if m.Amount.IsZero() {
		return errors.Field("Amount", errors.ErrAmount, "nothing withdrawn")
	}
	return nil
}

// UnstakeCallbackMsg records Amount in the deferred ledger under Period
// once unstaking succeeds.
type UnstakeCallbackMsg struct {
	Amount coin.Amount `json:"amount"`
	Period uint64      `json:"period"`
}

func (UnstakeCallbackMsg) Path() string { return pathOnUnstake }

func (m *UnstakeCallbackMsg) Validate() error {
	if m.Amount.IsZero() {
		return errors.Field("Amount", errors.ErrAmount, "nothing unstaked")
	}
	return nil
}

// ReleaseMsg distributes the currently eligible rewards.
type ReleaseMsg struct{}

func (ReleaseMsg) Path() string    { return pathRelease }
func (ReleaseMsg) Validate() error { return nil }

// DonateMsg adds the attached deposit to the rewards once the harvester
// account is seen holding it.
type DonateMsg struct{}

func (DonateMsg) Path() string    { return pathDonate }
func (DonateMsg) Validate() error { return nil }

// DonateCallbackMsg receives the balance of the harvester account read for
// a donation of Amount.
type DonateCallbackMsg struct {
	Amount coin.Amount `json:"amount"`
}

func (DonateCallbackMsg) Path() string { return pathOnDonate }

func (m *DonateCallbackMsg) Validate() error {
	if m.Amount.IsZero() {
		return errors.Field("Amount", errors.ErrAmount, "nothing donated")
	}
	return nil
}

// SetFeeScheduleMsg replaces the fee schedule.
type SetFeeScheduleMsg struct {
	Schedule feesplit.Schedule `json:"schedule"`
}

func (SetFeeScheduleMsg) Path() string { return pathSetFeeSchedule }

func (m *SetFeeScheduleMsg) Validate() error {
	return m.Schedule.Validate()
}

// SetFarmDurationMsg replaces the farm duration.
type SetFarmDurationMsg struct {
	Duration harvest.UnixDuration `json:"duration"`
}

func (SetFarmDurationMsg) Path() string { return pathSetFarmDuration }

func (m *SetFarmDurationMsg) Validate() error {
	if m.Duration < 0 {
		return errors.Field("Duration", errors.ErrInput, "negative")
	}
	return nil
}

// SetRewardWindowMsg replaces the reward window. Zero releases all
// available rewards at once.
type SetRewardWindowMsg struct {
	Window harvest.UnixDuration `json:"window"`
}

func (SetRewardWindowMsg) Path() string { return pathSetRewardWindow }

func (m *SetRewardWindowMsg) Validate() error {
	if m.Window < 0 {
		return errors.Field("Window", errors.ErrInput, "negative")
	}
	return nil
}

// UpdateConfigurationMsg patches the configuration. Zero value fields of
// the patch are ignored.
type UpdateConfigurationMsg struct {
	Patch *Configuration `json:"patch"`
}

func (UpdateConfigurationMsg) Path() string { return pathUpdateConfiguration }

func (m *UpdateConfigurationMsg) Validate() error {
	if m.Patch == nil {
		return errors.Field("Patch", errors.ErrEmpty, "required")
	}
	return nil
}
