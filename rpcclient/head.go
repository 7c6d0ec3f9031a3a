package rpcclient

import (
	"context"
	"time"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/jonboulle/clockwork"
)

// LocalHead derives the chain head from the local clock. Epochs are of a
// fixed length and counted from the genesis time.
type LocalHead struct {
	clock       clockwork.Clock
	genesis     time.Time
	epochLength time.Duration
}

var _ harvest.ChainHead = (*LocalHead)(nil)

// NewLocalHead returns a chain head ticking with given clock. Nil clock
// means the real one.
func NewLocalHead(clock clockwork.Clock, genesis time.Time, epochLength time.Duration) (*LocalHead, error) {
	if epochLength <= 0 {
		return nil, errors.Wrap(errors.ErrInput, "epoch length must be positive")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LocalHead{clock: clock, genesis: genesis, epochLength: epochLength}, nil
}

func (h *LocalHead) Head(ctx context.Context) (harvest.Head, error) {
	now := h.clock.Now()
	var epoch uint64
	if now.After(h.genesis) {
		epoch = uint64(now.Sub(h.genesis) / h.epochLength)
	}
	return harvest.Head{Time: now, Epoch: epoch}, nil
}
