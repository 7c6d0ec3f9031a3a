package harvest

import (
	"context"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x"
	"github.com/iov-one/harvest/x/promise"
)

// DonateHandler starts crediting a donation. The declared deposit is not
// trusted: the balance of the harvester account is read first and the
// donation is credited by DonateCallbackHandler only if that balance holds
// it on top of everything already accounted for.
type DonateHandler struct {
	auth x.Authenticator
}

var _ harvest.Handler = DonateHandler{}

func (h DonateHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h DonateHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	amount, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	id, err := promise.Issue(db, info, &DonateCallbackMsg{Amount: amount}, harvest.ViewAccount(info.Self()))
	if err != nil {
		return nil, errors.Wrap(err, "issue view account")
	}
	info.Logger().Info("verifying donation", "amount", amount, "promise", id)
	return &harvest.DeliverResult{Outcome: "verifying"}, nil
}

func (h DonateHandler) validate(ctx context.Context, db harvest.KVStore, tx harvest.Tx) (coin.Amount, error) {
	var msg DonateMsg
	if err := harvest.LoadMsg(tx, &msg); err != nil {
		return coin.Amount{}, errors.Wrap(err, "load msg")
	}
	conf, err := loadConf(db)
	if err != nil {
		return coin.Amount{}, err
	}
	if !h.auth.HasAccount(ctx, conf.Owner) {
		return coin.Amount{}, errors.Wrap(errors.ErrUnauthorized, "owner only")
	}
	amount := x.Deposit(ctx)
	if amount.IsZero() {
		return amount, errors.Wrap(errors.ErrAmount, "deposit required")
	}
	return amount, nil
}

// DonateCallbackHandler credits a donation once the balance of the
// harvester account was read.
type DonateCallbackHandler struct{}

var _ harvest.Handler = DonateCallbackHandler{}

func (h DonateCallbackHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	var msg DonateCallbackMsg
	if _, err := h.validate(ctx, tx, &msg); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h DonateCallbackHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	var msg DonateCallbackMsg
	res, err := h.validate(ctx, tx, &msg)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		info.Logger().Error("donation not verified", "amount", msg.Amount, "err", err)
		return &harvest.DeliverResult{Log: err.Error(), Outcome: "failed"}, nil
	}
	var balance struct {
		Amount coin.Amount `json:"amount"`
	}
	if err := res.Decode(&balance); err != nil {
		return &harvest.DeliverResult{Log: err.Error(), Outcome: "failed"}, nil
	}

	s, err := loadState(db)
	if err != nil {
		return nil, err
	}
	free, err := unaccounted(db, s, balance.Amount)
	if err != nil {
		return nil, err
	}
	if msg.Amount.Cmp(free) > 0 {
		log := errors.Wrapf(errors.ErrAmount, "donation of %s exceeds unaccounted balance %s", msg.Amount, free).Error()
		info.Logger().Error("donation rejected", "amount", msg.Amount, "balance", balance.Amount, "unaccounted", free)
		return &harvest.DeliverResult{Log: log, Outcome: "rejected"}, nil
	}
	if err := s.credit(msg.Amount); err != nil {
		return nil, err
	}
	if err := saveState(db, s); err != nil {
		return nil, err
	}
	info.Logger().Info("donation received", "amount", msg.Amount)
	return &harvest.DeliverResult{Outcome: "donated"}, nil
}

func (h DonateCallbackHandler) validate(ctx context.Context, tx harvest.Tx, msg *DonateCallbackMsg) (promise.Result, error) {
	res, err := promise.RequireResult(ctx)
	if err != nil {
		return res, err
	}
	if err := harvest.LoadMsg(tx, msg); err != nil {
		return res, errors.Wrap(err, "load msg")
	}
	return res, nil
}

// unaccounted returns the part of balance that is neither available for
// release nor attached to an outgoing call still in the outbox.
func unaccounted(db harvest.ReadOnlyKVStore, s *State, balance coin.Amount) (coin.Amount, error) {
	accounted := s.AvailableRewards
	pending, err := promise.ListPending(db)
	if err != nil {
		return coin.Amount{}, errors.Wrap(err, "pending promises")
	}
	for _, p := range pending {
		for _, c := range p.Calls {
			if accounted, err = accounted.Add(c.Deposit); err != nil {
				return coin.Amount{}, errors.Wrap(err, "accounted balance")
			}
		}
	}
	if balance.Cmp(accounted) <= 0 {
		return coin.Amount{}, nil
	}
	return balance.Sub(accounted)
}
