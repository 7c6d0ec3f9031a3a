package swap

import (
	"context"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x"
	"github.com/iov-one/harvest/x/promise"
)

// RegisterRoutes will instantiate and register all handlers in this package.
func RegisterRoutes(r harvest.Registry, auth x.Authenticator, book Bookkeeper) {
	c := NewConverter(book)
	r.Handle(&BuyCallbackMsg{}, BuyCallbackHandler{conv: c, book: book})
	r.Handle(&ForwardBalanceMsg{}, ForwardBalanceHandler{auth: auth, book: book})
	r.Handle(&BalanceCallbackMsg{}, BalanceCallbackHandler{conv: c})
}

// BuyCallbackHandler forwards the bought amount, or refunds the sold amount
// when the buy failed.
type BuyCallbackHandler struct {
	conv Converter
	book Bookkeeper
}

var _ harvest.Handler = BuyCallbackHandler{}

func (h BuyCallbackHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	var msg BuyCallbackMsg
	if _, err := loadCallback(ctx, tx, &msg); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h BuyCallbackHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	var msg BuyCallbackMsg
	res, err := loadCallback(ctx, tx, &msg)
	if err != nil {
		return nil, err
	}

	var bought coin.Amount
	if err := res.Decode(&bought); err != nil {
		info.Logger().Error("buy failed", "amount", msg.Amount, "err", err)
		if err := h.book.Refund(db, info, msg.Amount); err != nil {
			return nil, errors.Wrap(err, "cannot refund")
		}
		return &harvest.DeliverResult{Log: err.Error(), Outcome: "refunded"}, nil
	}
	if bought.IsZero() {
		info.Logger().Info("nothing bought", "amount", msg.Amount)
		return &harvest.DeliverResult{Outcome: "nothing_to_do"}, nil
	}
	if err := h.conv.forward(db, info, bought); err != nil {
		return nil, err
	}
	return &harvest.DeliverResult{
		Data:    []byte(bought.String()),
		Outcome: "forwarded",
	}, nil
}

// ForwardBalanceHandler issues the balance read of the bought asset.
type ForwardBalanceHandler struct {
	auth x.Authenticator
	book Bookkeeper
}

var _ harvest.Handler = ForwardBalanceHandler{}

func (h ForwardBalanceHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	if err := h.validate(ctx, tx); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h ForwardBalanceHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	if err := h.validate(ctx, tx); err != nil {
		return nil, err
	}
	s, err := h.book.SwapSettings(db)
	if err != nil {
		return nil, errors.Wrap(err, "swap settings")
	}
	call, err := harvest.FunctionCall(s.Token, "ft_balance_of", map[string]harvest.AccountID{"account_id": info.Self()}, coin.Amount{})
	if err != nil {
		return nil, err
	}
	if _, err := promise.Issue(db, info, &BalanceCallbackMsg{}, call); err != nil {
		return nil, errors.Wrap(err, "issue balance read")
	}
	return &harvest.DeliverResult{Outcome: "reading_balance"}, nil
}

func (h ForwardBalanceHandler) validate(ctx context.Context, tx harvest.Tx) error {
	if _, ok := h.auth.Caller(ctx); !ok {
		return errors.Wrap(errors.ErrUnauthorized, "anonymous caller")
	}
	var msg ForwardBalanceMsg
	return harvest.LoadMsg(tx, &msg)
}

// BalanceCallbackHandler forwards a positive balance of the bought asset.
type BalanceCallbackHandler struct {
	conv Converter
}

var _ harvest.Handler = BalanceCallbackHandler{}

func (h BalanceCallbackHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	var msg BalanceCallbackMsg
	if _, err := loadCallback(ctx, tx, &msg); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h BalanceCallbackHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	var msg BalanceCallbackMsg
	res, err := loadCallback(ctx, tx, &msg)
	if err != nil {
		return nil, err
	}
	var balance coin.Amount
	if err := res.Decode(&balance); err != nil {
		return nil, errors.Wrap(err, "balance")
	}
	if balance.IsZero() {
		return &harvest.DeliverResult{Outcome: "nothing_to_do"}, nil
	}
	if err := h.conv.forward(db, info, balance); err != nil {
		return nil, err
	}
	return &harvest.DeliverResult{
		Data:    []byte(balance.String()),
		Outcome: "forwarded",
	}, nil
}

func loadCallback(ctx context.Context, tx harvest.Tx, msg harvest.Msg) (promise.Result, error) {
	res, err := promise.RequireResult(ctx)
	if err != nil {
		return res, err
	}
	if err := harvest.LoadMsg(tx, msg); err != nil {
		return res, errors.Wrap(err, "load msg")
	}
	return res, nil
}
