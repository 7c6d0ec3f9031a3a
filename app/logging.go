package app

import (
	"context"
	"time"

	"github.com/iov-one/harvest"
)

// Logging is a decorator to log messages as they pass through
type Logging struct{}

var _ harvest.Decorator = Logging{}

// NewLogging creates a Logging decorator
func NewLogging() Logging {
	return Logging{}
}

// Check logs error -> error, success -> debug
func (Logging) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx, next harvest.Checker) (*harvest.CheckResult, error) {
	start := time.Now()
	res, err := next.Check(ctx, info, db, tx)
	var resLog string
	if err == nil {
		resLog = res.Log
	}
	logDuration(info, tx, start, resLog, "", err, true)
	return res, err
}

// Deliver logs error -> error, success -> info
func (Logging) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx, next harvest.Deliverer) (*harvest.DeliverResult, error) {
	start := time.Now()
	res, err := next.Deliver(ctx, info, db, tx)
	var resLog, outcome string
	if err == nil && res != nil {
		resLog, outcome = res.Log, res.Outcome
	}
	logDuration(info, tx, start, resLog, outcome, err, false)
	return res, err
}

// logDuration writes information about the time and result to the logger
func logDuration(info harvest.BlockInfo, tx harvest.Tx, start time.Time, msg, outcome string, err error, lowPrio bool) {
	delta := time.Since(start)
	logger := info.Logger().With("path", harvest.GetPath(tx), "duration", delta/time.Microsecond)
	if outcome != "" {
		logger = logger.With("outcome", outcome)
	}

	// Although message can be empty, we still want to emit a log entry
	// because it contains other relevant information beside the message.
	switch {
	case err != nil:
		logger.With("err", err).Error(msg)
	case lowPrio:
		logger.Debug(msg)
	default:
		logger.Info(msg)
	}
}
