package harvest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/app"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/harvesttest"
	"github.com/iov-one/harvest/harvesttest/assert"
	"github.com/iov-one/harvest/store"
	"github.com/iov-one/harvest/x"
	"github.com/iov-one/harvest/x/feesplit"
	"github.com/iov-one/harvest/x/promise"
	"github.com/iov-one/harvest/x/swap"
)

const (
	owner harvest.AccountID = "owner.near"
	pool  harvest.AccountID = "pool.near"
)

// fixture is a constructed harvester with all routes registered. Messages
// are delivered the way the engine does it, promises are resolved by hand.
type fixture struct {
	t        *testing.T
	db       harvest.CacheableKVStore
	auth     *x.CtxAuth
	router   *app.Router
	resolver *promise.Resolver
	now      time.Time
	epoch    uint64
}

func newFixture(t *testing.T, conf *Configuration) *fixture {
	t.Helper()
	auth := &x.CtxAuth{Key: "test"}
	r := app.NewRouter()
	RegisterRoutes(r, auth)
	feesplit.RegisterRoutes(r, Accounts{})
	swap.RegisterRoutes(r, auth, Accounts{})

	f := &fixture{
		t:        t,
		db:       store.MemStore(),
		auth:     auth,
		router:   r,
		resolver: promise.NewResolver(r, r),
		now:      harvesttest.Epoch0,
		epoch:    100,
	}

	raw, err := json.Marshal(map[string]interface{}{"harvest": conf})
	assert.Nil(t, err)
	opts := harvest.Options{"conf": raw}
	assert.Nil(t, Initializer{}.FromGenesis(opts, f.info(), f.db))
	return f
}

func testConf(policy Policy) *Configuration {
	c := NewConfiguration()
	c.Owner = owner
	c.StakingPool = pool
	c.Policy = policy
	c.Beneficiary = "alice.near"
	c.RewardWindow = 0
	return c
}

func (f *fixture) info() harvest.BlockInfo {
	return harvesttest.BlockInfo(f.t, f.now, f.epoch)
}

func (f *fixture) advance(d time.Duration, epochs uint64) {
	f.now = f.now.Add(d)
	f.epoch += epochs
}

// deliver runs check and deliver of the message invoked by the caller.
// Changes are written only when both succeed.
func (f *fixture) deliver(caller harvest.AccountID, msg harvest.Msg) (*harvest.DeliverResult, error) {
	return f.deliverDeposit(caller, coin.Amount{}, msg)
}

func (f *fixture) deliverDeposit(caller harvest.AccountID, deposit coin.Amount, msg harvest.Msg) (*harvest.DeliverResult, error) {
	f.t.Helper()
	ctx := x.WithDeposit(f.auth.WithCaller(context.Background(), caller), deposit)
	tx := &harvesttest.Tx{Msg: msg}

	check := f.db.CacheWrap()
	_, err := f.router.Check(ctx, f.info(), check, tx)
	check.Discard()
	if err != nil {
		return nil, err
	}
	cache := f.db.CacheWrap()
	defer cache.Discard()
	res, err := f.router.Deliver(ctx, f.info(), cache, tx)
	if err != nil {
		return nil, err
	}
	assert.Nil(f.t, cache.Write())
	return res, nil
}

// resolve resolves the promise with given id.
func (f *fixture) resolve(id uint64, result promise.Result) (*promise.Resolution, *harvest.DeliverResult) {
	f.t.Helper()
	res, dres, err := f.resolver.Resolve(context.Background(), f.info(), f.db, id, result)
	assert.Nil(f.t, err)
	return res, dres
}

// resolveAwaited resolves the promise the harvest chain waits for.
func (f *fixture) resolveAwaited(result promise.Result) (*promise.Resolution, *harvest.DeliverResult) {
	f.t.Helper()
	s := f.state()
	if s.Awaiting == 0 {
		f.t.Fatalf("no promise awaited in %s phase", s.Phase)
	}
	return f.resolve(s.Awaiting, result)
}

func (f *fixture) state() *State {
	f.t.Helper()
	s, err := loadState(f.db)
	assert.Nil(f.t, err)
	return s
}

func (f *fixture) pending() []promise.Pending {
	f.t.Helper()
	p, err := promise.ListPending(f.db)
	assert.Nil(f.t, err)
	return p
}

// setState overwrites the counters of the state.
func (f *fixture) setState(fn func(*State)) {
	f.t.Helper()
	s := f.state()
	fn(s)
	assert.Nil(f.t, saveState(f.db, s))
}

func success(t testing.TB, v interface{}) promise.Result {
	t.Helper()
	if v == nil {
		return promise.Success(nil)
	}
	raw, err := json.Marshal(v)
	assert.Nil(t, err)
	return promise.Success(raw)
}

func snapshot(unstaked, staked uint64, canWithdraw bool) AccountSnapshot {
	return AccountSnapshot{
		AccountID:       harvesttest.Self,
		UnstakedBalance: coin.NewAmount(unstaked),
		StakedBalance:   coin.NewAmount(staked),
		CanWithdraw:     canWithdraw,
	}
}

func amount(v uint64) coin.Amount {
	return coin.NewAmount(v)
}
