package feesplit

import (
	"context"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x"
	"github.com/iov-one/harvest/x/promise"
)

// RegisterRoutes will instantiate and register all handlers in this package.
func RegisterRoutes(r harvest.Registry, refund x.Refunder) {
	r.Handle(&TransferCallbackMsg{}, TransferCallbackHandler{refund: refund})
}

// TransferCallbackHandler re-credits the amount of a failed transfer.
type TransferCallbackHandler struct {
	refund x.Refunder
}

var _ harvest.Handler = TransferCallbackHandler{}

func (h TransferCallbackHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	if _, _, err := h.validate(ctx, tx); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h TransferCallbackHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	msg, res, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if res.Success {
		info.Logger().Info("transfer completed", "beneficiary", msg.Beneficiary, "amount", msg.Amount)
		return &harvest.DeliverResult{Outcome: "transferred"}, nil
	}

	info.Logger().Error("transfer failed", "beneficiary", msg.Beneficiary, "amount", msg.Amount, "err", res.Error)
	if err := h.refund.Refund(db, info, msg.Amount); err != nil {
		return nil, errors.Wrap(err, "cannot refund failed transfer")
	}
	return &harvest.DeliverResult{
		Log:     res.Error,
		Outcome: "refunded",
	}, nil
}

func (h TransferCallbackHandler) validate(ctx context.Context, tx harvest.Tx) (*TransferCallbackMsg, promise.Result, error) {
	res, err := promise.RequireResult(ctx)
	if err != nil {
		return nil, res, err
	}
	var msg TransferCallbackMsg
	if err := harvest.LoadMsg(tx, &msg); err != nil {
		return nil, res, errors.Wrap(err, "load msg")
	}
	return &msg, res, nil
}
