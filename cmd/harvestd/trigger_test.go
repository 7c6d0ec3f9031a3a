package main

import (
	"context"
	"testing"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/app"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/harvesttest/assert"
	harvester "github.com/iov-one/harvest/x/harvest"
	"github.com/tendermint/tendermint/libs/log"
)

type submitterMock struct {
	requests []app.Request
	err      error
}

func (s *submitterMock) Submit(ctx context.Context, r app.Request) (*harvest.DeliverResult, error) {
	s.requests = append(s.requests, r)
	if s.err != nil {
		return nil, s.err
	}
	return &harvest.DeliverResult{Outcome: "pinging"}, nil
}

func TestScheduler(t *testing.T) {
	s := &submitterMock{}
	c, err := NewScheduler(context.Background(), s, "owner.near", "@every 1h", "", log.NewNopLogger())
	assert.Nil(t, err)
	assert.Equal(t, 1, len(c.Entries()))

	// Run the job directly instead of waiting for the schedule.
	c.Entries()[0].Job.Run()
	assert.Equal(t, 1, len(s.requests))
	assert.Equal(t, &harvester.HarvestMsg{}, s.requests[0].Msg)
	assert.Equal(t, harvest.AccountID("owner.near"), s.requests[0].Caller)

	_, err = NewScheduler(context.Background(), s, "owner.near", "", "every tuesday", log.NewNopLogger())
	assert.IsErr(t, errors.ErrInput, err)
}

func TestTriggerToleratesRejection(t *testing.T) {
	s := &submitterMock{err: errors.Wrap(errors.ErrNothingToDo, "nothing eligible")}
	c, err := NewScheduler(context.Background(), s, "owner.near", "", "@every 10m", log.NewNopLogger())
	assert.Nil(t, err)
	c.Entries()[0].Job.Run()
	assert.Equal(t, &harvester.ReleaseMsg{}, s.requests[0].Msg)
}
