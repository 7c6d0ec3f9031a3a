package harvesttest

import (
	"context"

	"github.com/iov-one/harvest"
)

// Handler is a mock counting the calls and returning configured results.
type Handler struct {
	checkCall   int
	CheckResult harvest.CheckResult
	CheckErr    error

	deliverCall   int
	DeliverResult harvest.DeliverResult
	DeliverErr    error
}

var _ harvest.Handler = (*Handler)(nil)

func (h *Handler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	h.checkCall++
	if h.CheckErr != nil {
		return nil, h.CheckErr
	}
	res := h.CheckResult
	return &res, nil
}

func (h *Handler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	h.deliverCall++
	if h.DeliverErr != nil {
		return nil, h.DeliverErr
	}
	res := h.DeliverResult
	return &res, nil
}

func (h *Handler) CheckCallCount() int {
	return h.checkCall
}

func (h *Handler) DeliverCallCount() int {
	return h.deliverCall
}
