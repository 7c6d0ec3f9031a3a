package app

import (
	"context"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
)

// Recovery is a decorator to recover from panics in handlers, so we can log
// them as errors.
type Recovery struct{}

var _ harvest.Decorator = Recovery{}

// NewRecovery creates a Recovery decorator
func NewRecovery() Recovery {
	return Recovery{}
}

// Check turns panics into normal errors
func (Recovery) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx, next harvest.Checker) (_ *harvest.CheckResult, err error) {
	defer errors.Recover(&err)
	return next.Check(ctx, info, db, tx)
}

// Deliver turns panics into normal errors
func (Recovery) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx, next harvest.Deliverer) (_ *harvest.DeliverResult, err error) {
	defer errors.Recover(&err)
	return next.Deliver(ctx, info, db, tx)
}
