package harvest

import (
	"github.com/iov-one/harvest/errors"
	"github.com/looplab/fsm"
)

// Phase of the harvest chain.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhasePinging     Phase = "pinging"
	PhaseInspecting  Phase = "inspecting"
	PhaseWithdrawing Phase = "withdrawing"
	PhaseUnstaking   Phase = "unstaking"
	PhaseSettling    Phase = "settling"
)

func (p Phase) Validate() error {
	switch p {
	case PhaseIdle, PhasePinging, PhaseInspecting, PhaseWithdrawing, PhaseUnstaking, PhaseSettling:
		return nil
	default:
		return errors.Wrapf(errors.ErrState, "unknown phase %q", string(p))
	}
}

// Events advancing the harvest chain.
const (
	evStart     = "start"
	evPinged    = "pinged"
	evWithdraw  = "withdraw"
	evUnstake   = "unstake"
	evSkip      = "skip"
	evWithdrawn = "withdrawn"
	evUnstaked  = "unstaked"
	evSettled   = "settled"
	evFail      = "fail"
)

var phaseEvents = fsm.Events{
	{Name: evStart, Src: []string{string(PhaseIdle)}, Dst: string(PhasePinging)},
	{Name: evPinged, Src: []string{string(PhasePinging)}, Dst: string(PhaseInspecting)},
	{Name: evWithdraw, Src: []string{string(PhaseInspecting)}, Dst: string(PhaseWithdrawing)},
	{Name: evUnstake, Src: []string{string(PhaseInspecting)}, Dst: string(PhaseUnstaking)},
	{Name: evSkip, Src: []string{string(PhaseInspecting)}, Dst: string(PhaseIdle)},
	{Name: evWithdrawn, Src: []string{string(PhaseWithdrawing)}, Dst: string(PhaseSettling)},
	{Name: evUnstaked, Src: []string{string(PhaseUnstaking)}, Dst: string(PhaseIdle)},
	{Name: evSettled, Src: []string{string(PhaseSettling)}, Dst: string(PhaseIdle)},
	{Name: evFail, Src: []string{
		string(PhasePinging),
		string(PhaseInspecting),
		string(PhaseWithdrawing),
		string(PhaseUnstaking),
		string(PhaseSettling),
	}, Dst: string(PhaseIdle)},
}

// advance applies the event to the phase of the state. An event that is
// not allowed in the current phase is ErrState. Reaching idle other than by
// failure commits the start of the chain as the last harvest.
func (s *State) advance(event string) error {
	m := fsm.NewFSM(string(s.Phase), phaseEvents, nil)
	if err := m.Event(event); err != nil {
		return errors.Wrapf(errors.ErrState, "%s in %s phase: %s", event, s.Phase, err)
	}
	s.Phase = Phase(m.Current())
	if s.Phase != PhaseIdle {
		return nil
	}
	if event != evFail {
		s.LastHarvestTime = s.RunStartTime
		s.LastHarvestEpoch = s.RunStartEpoch
	}
	s.Awaiting = 0
	s.RunStartTime = 0
	s.RunStartEpoch = 0
	return nil
}
