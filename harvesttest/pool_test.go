package harvesttest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/harvesttest/assert"
	"github.com/jonboulle/clockwork"
)

func call(t testing.TB, receiver harvest.AccountID, method string, args interface{}) harvest.Call {
	t.Helper()
	c, err := harvest.FunctionCall(receiver, method, args, coin.Amount{})
	assert.Nil(t, err)
	return c
}

func TestPoolUnstakeAndWithdraw(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(Epoch0)
	p := NewPool(clock, "pool.near")
	p.Stake(coin.NewAmount(100))
	p.Reward(coin.NewAmount(5))

	_, err := p.Execute(ctx, call(t, "pool.near", "ping", nil))
	assert.Nil(t, err)
	_, err = p.Execute(ctx, call(t, "pool.near", "unstake_all", nil))
	assert.Nil(t, err)

	raw, err := p.Execute(ctx, call(t, "pool.near", "get_account", map[string]string{"account_id": string(Self)}))
	assert.Nil(t, err)
	var acc struct {
		Unstaked    coin.Amount `json:"unstaked_balance"`
		CanWithdraw bool        `json:"can_withdraw"`
	}
	assert.Nil(t, json.Unmarshal(raw, &acc))
	assert.Equal(t, coin.NewAmount(105), acc.Unstaked)
	assert.Equal(t, false, acc.CanWithdraw)

	_, err = p.Execute(ctx, call(t, "pool.near", "withdraw_all", nil))
	assert.IsErr(t, errors.ErrRemote, err)

	clock.Advance(UnlockEpochs * EpochLength)
	head, err := p.Head(ctx)
	assert.Nil(t, err)
	assert.Equal(t, uint64(UnlockEpochs), head.Epoch)

	_, err = p.Execute(ctx, call(t, "pool.near", "withdraw", map[string]coin.Amount{"amount": coin.NewAmount(105)}))
	assert.Nil(t, err)
	staked, unstaked := p.Account()
	assert.Equal(t, coin.Amount{}, staked)
	assert.Equal(t, coin.Amount{}, unstaked)
	assert.Equal(t, coin.NewAmount(105), p.Balance())
}

func TestPoolBalance(t *testing.T) {
	ctx := context.Background()
	p := NewPool(clockwork.NewFakeClockAt(Epoch0), "pool.near")

	_, err := p.Execute(ctx, harvest.Transfer("alice.near", coin.NewAmount(3)))
	assert.IsErr(t, errors.ErrRemote, err)

	p.Fund(coin.NewAmount(10))
	raw, err := p.Execute(ctx, harvest.ViewAccount(Self))
	assert.Nil(t, err)
	assert.Equal(t, `{"amount":"10"}`, string(raw))

	_, err = p.Execute(ctx, harvest.Transfer("alice.near", coin.NewAmount(3)))
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(7), p.Balance())

	// A failed call keeps its deposit.
	p.FailNext("transfer", errors.ErrRemote.New("frozen"))
	_, err = p.Execute(ctx, harvest.Transfer("alice.near", coin.NewAmount(3)))
	assert.IsErr(t, errors.ErrRemote, err)
	assert.Equal(t, coin.NewAmount(7), p.Balance())

	p.FailNext("view_account", errors.ErrRemote.New("relay down"))
	_, err = p.Execute(ctx, harvest.ViewAccount(Self))
	assert.IsErr(t, errors.ErrRemote, err)
}

func TestPoolFailNext(t *testing.T) {
	ctx := context.Background()
	p := NewPool(clockwork.NewFakeClockAt(Epoch0), "pool.near")
	p.Fund(coin.NewAmount(3))
	p.FailNext("transfer", errors.ErrRemote.New("frozen"))

	_, err := p.Execute(ctx, harvest.Transfer("alice.near", coin.NewAmount(3)))
	assert.IsErr(t, errors.ErrRemote, err)
	_, err = p.Execute(ctx, harvest.Transfer("alice.near", coin.NewAmount(3)))
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(3), p.Received("alice.near"))
	assert.Equal(t, 2, len(p.Calls()))
}

func TestPoolExchange(t *testing.T) {
	ctx := context.Background()
	p := NewPool(clockwork.NewFakeClockAt(Epoch0.Add(-time.Hour)), "pool.near")
	p.Exchange("usn.near", harvest.Fraction{Numerator: 9, Denominator: 10})
	p.Fund(coin.NewAmount(100))

	buy, err := harvest.FunctionCall("usn.near", "buy", nil, coin.NewAmount(100))
	assert.Nil(t, err)
	raw, err := p.Execute(ctx, buy)
	assert.Nil(t, err)
	assert.Equal(t, `"90"`, string(raw))
	assert.Equal(t, coin.NewAmount(90), p.Tokens(Self))

	_, err = p.Execute(ctx, call(t, "usn.near", "ft_transfer_call", map[string]interface{}{
		"receiver_id": "farm.near",
		"amount":      coin.NewAmount(91),
	}))
	assert.IsErr(t, errors.ErrRemote, err)

	_, err = p.Execute(ctx, call(t, "nobody.near", "ping", nil))
	assert.IsErr(t, errors.ErrRemote, err)
}
