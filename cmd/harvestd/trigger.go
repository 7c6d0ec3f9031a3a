package main

import (
	"context"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/app"
	"github.com/iov-one/harvest/errors"
	harvester "github.com/iov-one/harvest/x/harvest"
	"github.com/robfig/cron/v3"
	"github.com/tendermint/tendermint/libs/log"
)

// Submitter accepts messages for processing.
type Submitter interface {
	Submit(ctx context.Context, r app.Request) (*harvest.DeliverResult, error)
}

// NewScheduler returns a cron scheduler submitting the harvest and release
// entry points on given specs. An empty spec disables its trigger.
func NewScheduler(ctx context.Context, s Submitter, caller harvest.AccountID, harvestSpec, releaseSpec string, logger log.Logger) (*cron.Cron, error) {
	clog := cronLogger{logger: logger.With("module", "cron")}
	c := cron.New(cron.WithChain(
		cron.Recover(clog),
		cron.SkipIfStillRunning(clog),
	), cron.WithLogger(clog))

	triggers := []struct {
		spec string
		msg  func() harvest.Msg
	}{
		{harvestSpec, func() harvest.Msg { return &harvester.HarvestMsg{} }},
		{releaseSpec, func() harvest.Msg { return &harvester.ReleaseMsg{} }},
	}
	for _, t := range triggers {
		if t.spec == "" {
			continue
		}
		job := trigger{ctx: ctx, s: s, caller: caller, msg: t.msg, logger: logger}
		if _, err := c.AddJob(t.spec, job); err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "schedule %q: %s", t.spec, err)
		}
	}
	return c, nil
}

// trigger submits a single message every time it runs.
type trigger struct {
	ctx    context.Context
	s      Submitter
	caller harvest.AccountID
	msg    func() harvest.Msg
	logger log.Logger
}

func (t trigger) Run() {
	msg := t.msg()
	ctx, cancel := context.WithTimeout(t.ctx, requestTimeout)
	defer cancel()

	res, err := t.s.Submit(ctx, app.Request{Msg: msg, Caller: t.caller})
	switch {
	case err == nil:
		t.logger.Info("trigger submitted", "path", msg.Path(), "outcome", res.Outcome)
	case errors.ErrTooEarly.Is(err), errors.ErrNothingToDo.Is(err):
		t.logger.Debug("trigger skipped", "path", msg.Path(), "reason", err)
	default:
		t.logger.Error("trigger failed", "path", msg.Path(), "err", err)
	}
}

// cronLogger adapts the logger to the cron package.
type cronLogger struct {
	logger log.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}
