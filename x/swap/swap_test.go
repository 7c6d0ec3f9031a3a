package swap

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/app"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/harvesttest"
	"github.com/iov-one/harvest/harvesttest/assert"
	"github.com/iov-one/harvest/store"
	"github.com/iov-one/harvest/x"
	"github.com/iov-one/harvest/x/promise"
)

type bookkeeper struct {
	refunded  coin.Amount
	forwarded coin.Amount
	settings  Settings
}

func (b *bookkeeper) Refund(db harvest.KVStore, info harvest.BlockInfo, amount coin.Amount) error {
	total, err := b.refunded.Add(amount)
	b.refunded = total
	return err
}

func (b *bookkeeper) RecordForwarded(db harvest.KVStore, info harvest.BlockInfo, amount coin.Amount) error {
	total, err := b.forwarded.Add(amount)
	b.forwarded = total
	return err
}

func (b *bookkeeper) SwapSettings(db harvest.ReadOnlyKVStore) (Settings, error) {
	return b.settings, nil
}

type fixture struct {
	t        *testing.T
	db       harvest.CacheableKVStore
	info     harvest.BlockInfo
	auth     *x.CtxAuth
	router   *app.Router
	resolver *promise.Resolver
	book     *bookkeeper
}

func newFixture(t *testing.T) *fixture {
	auth := &x.CtxAuth{Key: "swap"}
	book := &bookkeeper{settings: Settings{
		Token:        "usn.near",
		Forward:      "farm.near",
		FarmDuration: harvest.AsUnixDuration(time.Hour),
		FarmID:       7,
	}}
	r := app.NewRouter()
	RegisterRoutes(r, auth, book)
	return &fixture{
		t:        t,
		db:       store.MemStore(),
		info:     harvesttest.BlockInfo(t, harvesttest.Epoch0, 1),
		auth:     auth,
		router:   r,
		resolver: promise.NewResolver(r, r),
		book:     book,
	}
}

func (f *fixture) onlyPending() promise.Pending {
	f.t.Helper()
	pending, err := promise.ListPending(f.db)
	assert.Nil(f.t, err)
	assert.Equal(f.t, 1, len(pending))
	return pending[0]
}

func (f *fixture) resolve(id uint64, result promise.Result) (*promise.Resolution, *harvest.DeliverResult) {
	f.t.Helper()
	res, dres, err := f.resolver.Resolve(context.Background(), f.info, f.db, id, result)
	assert.Nil(f.t, err)
	return res, dres
}

func encoded(t testing.TB, v interface{}) promise.Result {
	t.Helper()
	raw, err := json.Marshal(v)
	assert.Nil(t, err)
	return promise.Success(raw)
}

func TestConvertAndForward(t *testing.T) {
	f := newFixture(t)
	conv := NewConverter(f.book)
	assert.Nil(t, conv.ConvertAndForward(f.db, f.info, coin.NewAmount(500)))

	buy := f.onlyPending()
	assert.Equal(t, harvest.AccountID("usn.near"), buy.Calls[0].Receiver)
	assert.Equal(t, coin.NewAmount(500), buy.Calls[0].Deposit)

	_, dres := f.resolve(buy.ID, encoded(t, coin.NewAmount(480)))
	assert.Equal(t, "forwarded", dres.Outcome)
	assert.Equal(t, []byte("480"), dres.Data)
	assert.Equal(t, coin.NewAmount(480), f.book.forwarded)

	transfer := f.onlyPending()
	assert.Equal(t, "ft_transfer_call", transfer.Calls[0].Method)
	assert.Equal(t, oneYocto, transfer.Calls[0].Deposit)

	var args transferCallArgs
	assert.Nil(t, json.Unmarshal(transfer.Calls[0].Args, &args))
	assert.Equal(t, harvest.AccountID("farm.near"), args.Receiver)
	assert.Equal(t, coin.NewAmount(480), args.Amount)

	var details farmingDetails
	assert.Nil(t, json.Unmarshal([]byte(args.Msg), &details))
	assert.Equal(t, uint64(7), details.FarmID)
	wantEnd := strconv.FormatInt(harvesttest.Epoch0.Add(time.Hour).UnixNano(), 10)
	assert.Equal(t, wantEnd, details.EndDate)

	// The transfer has no callback.
	res, dres := f.resolve(transfer.ID, promise.Success(nil))
	assert.Equal(t, "", res.Callback)
	assert.Nil(t, dres)
}

func TestBuyCallback(t *testing.T) {
	cases := map[string]struct {
		Result       promise.Result
		WantOutcome  string
		WantRefund   coin.Amount
		WantForward  coin.Amount
		WantPromises int
	}{
		"failed buy is refunded": {
			Result:      promise.Failure(errors.ErrRemote.New("slippage")),
			WantOutcome: "refunded",
			WantRefund:  coin.NewAmount(500),
		},
		"nothing bought": {
			Result:      encoded(t, coin.Amount{}),
			WantOutcome: "nothing_to_do",
		},
		"bought amount is forwarded": {
			Result:       encoded(t, coin.NewAmount(499)),
			WantOutcome:  "forwarded",
			WantForward:  coin.NewAmount(499),
			WantPromises: 1,
		},
		"malformed result is refunded": {
			Result:      promise.Success(json.RawMessage(`{"sold": true}`)),
			WantOutcome: "refunded",
			WantRefund:  coin.NewAmount(500),
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			assert.Nil(t, NewConverter(f.book).ConvertAndForward(f.db, f.info, coin.NewAmount(500)))
			buy := f.onlyPending()

			res, dres := f.resolve(buy.ID, tc.Result)
			assert.Equal(t, true, res.Applied)
			assert.Equal(t, tc.WantOutcome, dres.Outcome)
			assert.Equal(t, tc.WantRefund, f.book.refunded)
			assert.Equal(t, tc.WantForward, f.book.forwarded)

			pending, err := promise.ListPending(f.db)
			assert.Nil(t, err)
			assert.Equal(t, tc.WantPromises, len(pending))
		})
	}
}

func TestForwardBalance(t *testing.T) {
	f := newFixture(t)
	tx := &harvesttest.Tx{Msg: &ForwardBalanceMsg{}}

	_, err := f.router.Deliver(context.Background(), f.info, f.db, tx)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	ctx := f.auth.WithCaller(context.Background(), "anyone.near")
	dres, err := f.router.Deliver(ctx, f.info, f.db, tx)
	assert.Nil(t, err)
	assert.Equal(t, "reading_balance", dres.Outcome)

	read := f.onlyPending()
	assert.Equal(t, "ft_balance_of", read.Calls[0].Method)
	assert.Equal(t, `{"account_id":"`+string(harvesttest.Self)+`"}`, string(read.Calls[0].Args))

	_, dres = f.resolve(read.ID, encoded(t, coin.NewAmount(42)))
	assert.Equal(t, "forwarded", dres.Outcome)
	assert.Equal(t, coin.NewAmount(42), f.book.forwarded)
	assert.Equal(t, "ft_transfer_call", f.onlyPending().Calls[0].Method)
}

func TestForwardEmptyBalance(t *testing.T) {
	f := newFixture(t)
	ctx := f.auth.WithCaller(context.Background(), "anyone.near")
	_, err := f.router.Deliver(ctx, f.info, f.db, &harvesttest.Tx{Msg: &ForwardBalanceMsg{}})
	assert.Nil(t, err)

	_, dres := f.resolve(f.onlyPending().ID, encoded(t, coin.Amount{}))
	assert.Equal(t, "nothing_to_do", dres.Outcome)
	pending, err := promise.ListPending(f.db)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(pending))
}

func TestFailedBalanceReadIsNotApplied(t *testing.T) {
	f := newFixture(t)
	ctx := f.auth.WithCaller(context.Background(), "anyone.near")
	_, err := f.router.Deliver(ctx, f.info, f.db, &harvesttest.Tx{Msg: &ForwardBalanceMsg{}})
	assert.Nil(t, err)

	res, _ := f.resolve(f.onlyPending().ID, promise.Failure(errors.ErrRemote.New("no storage")))
	assert.Equal(t, false, res.Applied)
	assert.Equal(t, coin.Amount{}, f.book.forwarded)
}

func TestBuyCallbackRequiresResolution(t *testing.T) {
	f := newFixture(t)
	tx := &harvesttest.Tx{Msg: &BuyCallbackMsg{Amount: coin.NewAmount(1)}}
	_, err := f.router.Check(context.Background(), f.info, f.db, tx)
	assert.IsErr(t, errors.ErrUnauthorized, err)
}
