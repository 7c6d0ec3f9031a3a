package harvest

import (
	"testing"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/harvesttest/assert"
)

func TestPhaseTransitions(t *testing.T) {
	cases := map[string]struct {
		From    Phase
		Event   string
		Want    Phase
		WantErr *errors.Error
	}{
		"start from idle":           {From: PhaseIdle, Event: evStart, Want: PhasePinging},
		"pinged":                    {From: PhasePinging, Event: evPinged, Want: PhaseInspecting},
		"withdraw":                  {From: PhaseInspecting, Event: evWithdraw, Want: PhaseWithdrawing},
		"unstake":                   {From: PhaseInspecting, Event: evUnstake, Want: PhaseUnstaking},
		"nothing to do":             {From: PhaseInspecting, Event: evSkip, Want: PhaseIdle},
		"withdrawn":                 {From: PhaseWithdrawing, Event: evWithdrawn, Want: PhaseSettling},
		"settled":                   {From: PhaseSettling, Event: evSettled, Want: PhaseIdle},
		"unstaked":                  {From: PhaseUnstaking, Event: evUnstaked, Want: PhaseIdle},
		"failure while pinging":     {From: PhasePinging, Event: evFail, Want: PhaseIdle},
		"failure while settling":    {From: PhaseSettling, Event: evFail, Want: PhaseIdle},
		"cannot start twice":        {From: PhasePinging, Event: evStart, WantErr: errors.ErrState},
		"cannot fail when idle":     {From: PhaseIdle, Event: evFail, WantErr: errors.ErrState},
		"cannot skip the ping":      {From: PhaseIdle, Event: evWithdraw, WantErr: errors.ErrState},
		"cannot settle unwithdrawn": {From: PhaseInspecting, Event: evWithdrawn, WantErr: errors.ErrState},
		"unknown event":             {From: PhaseIdle, Event: "dance", WantErr: errors.ErrState},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			s := State{Phase: tc.From, Awaiting: 5}
			err := s.advance(tc.Event)
			assert.IsErr(t, tc.WantErr, err)
			if tc.WantErr != nil {
				assert.Equal(t, tc.From, s.Phase)
				return
			}
			assert.Equal(t, tc.Want, s.Phase)
			if s.Phase == PhaseIdle {
				assert.Equal(t, uint64(0), s.Awaiting)
			}
		})
	}
}

func TestGuardMarkersOnCompletion(t *testing.T) {
	cases := map[string]struct {
		From       Phase
		Event      string
		WantCommit bool
	}{
		"nothing to do":   {From: PhaseInspecting, Event: evSkip, WantCommit: true},
		"unstaked":        {From: PhaseUnstaking, Event: evUnstaked, WantCommit: true},
		"settled":         {From: PhaseSettling, Event: evSettled, WantCommit: true},
		"failed ping":     {From: PhasePinging, Event: evFail},
		"failed withdraw": {From: PhaseWithdrawing, Event: evFail},
		"still running":   {From: PhasePinging, Event: evPinged},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			s := State{
				Phase:            tc.From,
				Awaiting:         5,
				LastHarvestTime:  1000,
				LastHarvestEpoch: 10,
				RunStartTime:     2000,
				RunStartEpoch:    12,
			}
			assert.Nil(t, s.advance(tc.Event))
			switch {
			case s.Phase != PhaseIdle:
				assert.Equal(t, harvest.UnixTime(2000), s.RunStartTime)
				assert.Equal(t, harvest.UnixTime(1000), s.LastHarvestTime)
				return
			case tc.WantCommit:
				assert.Equal(t, harvest.UnixTime(2000), s.LastHarvestTime)
				assert.Equal(t, uint64(12), s.LastHarvestEpoch)
			default:
				assert.Equal(t, harvest.UnixTime(1000), s.LastHarvestTime)
				assert.Equal(t, uint64(10), s.LastHarvestEpoch)
			}
			assert.Equal(t, harvest.UnixTime(0), s.RunStartTime)
			assert.Equal(t, uint64(0), s.RunStartEpoch)
		})
	}
}

func TestPhaseValidate(t *testing.T) {
	assert.Nil(t, PhaseSettling.Validate())
	assert.IsErr(t, errors.ErrState, Phase("sleeping").Validate())
}
