package harvest

import (
	"context"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/gconf"
	"github.com/iov-one/harvest/x"
	"github.com/iov-one/harvest/x/ledger"
	"github.com/iov-one/harvest/x/promise"
)

// RegisterRoutes will instantiate and register all handlers in this package.
func RegisterRoutes(r harvest.Registry, auth x.Authenticator) {
	rel := newReleaser()
	r.Handle(&HarvestMsg{}, HarvestHandler{auth: auth})
	r.Handle(&PingCallbackMsg{}, PingCallbackHandler{})
	r.Handle(&AccountCallbackMsg{}, AccountCallbackHandler{})
	r.Handle(&WithdrawCallbackMsg{}, WithdrawCallbackHandler{rel: rel})
	r.Handle(&UnstakeCallbackMsg{}, UnstakeCallbackHandler{ledger: ledger.New()})
	r.Handle(&ReleaseMsg{}, ReleaseHandler{auth: auth, rel: rel})
	r.Handle(&DonateMsg{}, DonateHandler{auth: auth})
	r.Handle(&DonateCallbackMsg{}, DonateCallbackHandler{})
	setter := SetterHandler{auth: auth}
	r.Handle(&SetFeeScheduleMsg{}, setter)
	r.Handle(&SetFarmDurationMsg{}, setter)
	r.Handle(&SetRewardWindowMsg{}, setter)
	r.Handle(&UpdateConfigurationMsg{}, gconf.NewUpdateConfigurationHandler(
		confPkg,
		func() gconf.OwnedConfig { return &Configuration{} },
		auth,
	))
}

// RegisterQuery registers the state and environment queries.
func RegisterQuery(qr harvest.QueryRouter) {
	qr.Register("/info", InfoQueryHandler{})
	qr.Register("/env", EnvQueryHandler{})
}

// authorizeTrigger returns nil if the caller can start a harvest chain or a
// release.
func authorizeTrigger(ctx context.Context, auth x.Authenticator, conf *Configuration) error {
	if conf.PublicTrigger {
		if _, ok := auth.Caller(ctx); !ok {
			return errors.Wrap(errors.ErrUnauthorized, "anonymous caller")
		}
		return nil
	}
	if !auth.HasAccount(ctx, conf.Owner) {
		return errors.Wrap(errors.ErrUnauthorized, "owner only")
	}
	return nil
}

// HarvestHandler starts a harvest chain by pinging the staking pool.
type HarvestHandler struct {
	auth x.Authenticator
}

var _ harvest.Handler = HarvestHandler{}

func (h HarvestHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	if _, _, err := h.validate(ctx, info, db, tx); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h HarvestHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	conf, s, err := h.validate(ctx, info, db, tx)
	if err != nil {
		return nil, err
	}
	if s.Phase != PhaseIdle {
		info.Logger().Error("abandoning orphaned harvest chain", "phase", s.Phase, "promise", s.Awaiting)
		if err := s.advance(evFail); err != nil {
			return nil, err
		}
	}

	if err := s.advance(evStart); err != nil {
		return nil, err
	}
	s.RunStartTime = info.UnixTime()
	s.RunStartEpoch = info.Epoch()
	call, err := NewGateway(conf.StakingPool).Ping()
	if err != nil {
		return nil, err
	}
	if s.Awaiting, err = promise.Issue(db, info, &PingCallbackMsg{}, call); err != nil {
		return nil, errors.Wrap(err, "issue ping")
	}
	if err := saveState(db, s); err != nil {
		return nil, err
	}
	info.Logger().Info("harvest started", "pool", conf.StakingPool, "epoch", info.Epoch())
	return &harvest.DeliverResult{Outcome: string(PhasePinging)}, nil
}

func (h HarvestHandler) validate(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*Configuration, *State, error) {
	var msg HarvestMsg
	if err := harvest.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, nil, err
	}
	if err := authorizeTrigger(ctx, h.auth, conf); err != nil {
		return nil, nil, err
	}
	s, err := loadState(db)
	if err != nil {
		return nil, nil, err
	}
	if err := checkGuard(db, info, conf, s); err != nil {
		return nil, nil, err
	}
	return conf, s, nil
}

// checkGuard returns ErrTooEarly if a harvest chain is in flight or the
// previous one started too recently.
func checkGuard(db harvest.ReadOnlyKVStore, info harvest.BlockInfo, conf *Configuration, s *State) error {
	if s.Phase != PhaseIdle {
		pending, err := promise.IsPending(db, s.Awaiting)
		if err != nil {
			return errors.Wrap(err, "awaited promise")
		}
		if pending {
			return errors.Wrapf(errors.ErrTooEarly, "harvest in %s phase", s.Phase)
		}
		// The awaited promise is gone, the chain can never continue.
	}
	if s.LastHarvestTime.IsZero() {
		return nil
	}
	if elapsed := info.UnixTime().Sub(s.LastHarvestTime); elapsed < conf.GuardInterval.Duration() {
		return errors.Wrapf(errors.ErrTooEarly, "%s since last harvest, need %s", elapsed, conf.GuardInterval.Duration())
	}
	if info.Epoch() < s.LastHarvestEpoch+conf.GuardEpochs {
		return errors.Wrapf(errors.ErrTooEarly, "last harvest at epoch %d, need %d epochs", s.LastHarvestEpoch, conf.GuardEpochs)
	}
	return nil
}

// chain is the context shared by the continuations of a harvest chain.
type chain struct {
	conf   *Configuration
	state  *State
	result promise.Result
}

// loadChain returns the chain that is waiting for the promise being
// resolved. A callback of any other promise is ErrState.
func loadChain(ctx context.Context, db harvest.KVStore, tx harvest.Tx, msg harvest.Msg) (*chain, error) {
	res, err := promise.RequireResult(ctx)
	if err != nil {
		return nil, err
	}
	if err := harvest.LoadMsg(tx, msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	s, err := loadState(db)
	if err != nil {
		return nil, err
	}
	if id, _ := promise.ResolvingID(ctx); s.Phase == PhaseIdle || id != s.Awaiting {
		return nil, errors.Wrapf(errors.ErrState, "stale callback of promise %d", id)
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	return &chain{conf: conf, state: s, result: res}, nil
}

// abort moves the chain back to idle after a failed remote call.
func (c *chain) abort(db harvest.KVStore, info harvest.BlockInfo, cause error) (*harvest.DeliverResult, error) {
	info.Logger().Error("harvest chain failed", "phase", c.state.Phase, "err", cause)
	if err := c.state.advance(evFail); err != nil {
		return nil, err
	}
	if err := saveState(db, c.state); err != nil {
		return nil, err
	}
	return &harvest.DeliverResult{Log: cause.Error(), Outcome: "failed"}, nil
}

// issueUnstake issues unstaking of the whole staked balance without
// waiting for its outcome. Under the deferred policy the unstaked amount is
// recorded in the ledger once the call succeeds.
func issueUnstake(db harvest.KVStore, info harvest.BlockInfo, conf *Configuration, staked coin.Amount) error {
	call, err := NewGateway(conf.StakingPool).UnstakeAll()
	if err != nil {
		return err
	}
	var cb harvest.Msg
	if conf.Policy == PolicyDeferred && !staked.IsZero() {
		cb = &UnstakeCallbackMsg{Amount: staked, Period: info.Epoch() + conf.UnlockDelayEpochs}
	}
	if _, err := promise.Issue(db, info, cb, call); err != nil {
		return errors.Wrap(err, "issue unstake")
	}
	info.Logger().Info("unstaking", "staked", staked)
	return nil
}

// PingCallbackHandler reads the account of the harvester once the pool
// was pinged.
type PingCallbackHandler struct{}

var _ harvest.Handler = PingCallbackHandler{}

func (h PingCallbackHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	if _, err := loadChain(ctx, db, tx, &PingCallbackMsg{}); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h PingCallbackHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	c, err := loadChain(ctx, db, tx, &PingCallbackMsg{})
	if err != nil {
		return nil, err
	}
	if err := c.result.Err(); err != nil {
		return c.abort(db, info, errors.Wrap(err, "ping"))
	}
	if err := c.state.advance(evPinged); err != nil {
		return nil, err
	}
	call, err := NewGateway(c.conf.StakingPool).GetAccount(info.Self())
	if err != nil {
		return nil, err
	}
	if c.state.Awaiting, err = promise.Issue(db, info, &AccountCallbackMsg{}, call); err != nil {
		return nil, errors.Wrap(err, "issue get account")
	}
	if err := saveState(db, c.state); err != nil {
		return nil, err
	}
	return &harvest.DeliverResult{Outcome: string(PhaseInspecting)}, nil
}

// AccountCallbackHandler decides on the next step from the account
// snapshot.
type AccountCallbackHandler struct{}

var _ harvest.Handler = AccountCallbackHandler{}

func (h AccountCallbackHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	if _, err := loadChain(ctx, db, tx, &AccountCallbackMsg{}); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h AccountCallbackHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	c, err := loadChain(ctx, db, tx, &AccountCallbackMsg{})
	if err != nil {
		return nil, err
	}
	if err := c.result.Err(); err != nil {
		return c.abort(db, info, errors.Wrap(err, "get account"))
	}
	acc, err := DecodeAccount(c.result.Value)
	if err != nil {
		return c.abort(db, info, err)
	}
	info.Logger().Debug("account snapshot",
		"unstaked", acc.UnstakedBalance, "staked", acc.StakedBalance, "can_withdraw", acc.CanWithdraw)

	res := &harvest.DeliverResult{}
	switch unstaked, staked := acc.UnstakedBalance, acc.StakedBalance; {
	case !unstaked.IsZero() && acc.CanWithdraw:
		if err := c.state.advance(evWithdraw); err != nil {
			return nil, err
		}
		call, err := NewGateway(c.conf.StakingPool).Withdraw(unstaked)
		if err != nil {
			return nil, err
		}
		cb := &WithdrawCallbackMsg{Amount: unstaked, UnstakeAll: !staked.IsZero(), Staked: staked}
		if c.state.Awaiting, err = promise.Issue(db, info, cb, call); err != nil {
			return nil, errors.Wrap(err, "issue withdraw")
		}
		res.Outcome = string(PhaseWithdrawing)
	case !unstaked.IsZero():
		if err := c.state.advance(evSkip); err != nil {
			return nil, err
		}
		res.Outcome = "awaiting_unstaking"
		res.Log = "unstaked balance is not withdrawable yet"
	case !staked.IsZero():
		if err := c.state.advance(evUnstake); err != nil {
			return nil, err
		}
		if err := issueUnstake(db, info, c.conf, staked); err != nil {
			return nil, err
		}
		if err := c.state.advance(evUnstaked); err != nil {
			return nil, err
		}
		res.Outcome = string(PhaseUnstaking)
	default:
		if err := c.state.advance(evSkip); err != nil {
			return nil, err
		}
		res.Outcome = "nothing_to_do"
	}
	if err := saveState(db, c.state); err != nil {
		return nil, err
	}
	return res, nil
}

// WithdrawCallbackHandler credits the withdrawn rewards and settles them.
type WithdrawCallbackHandler struct {
	rel releaser
}

var _ harvest.Handler = WithdrawCallbackHandler{}

func (h WithdrawCallbackHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	if _, err := loadChain(ctx, db, tx, &WithdrawCallbackMsg{}); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h WithdrawCallbackHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	var msg WithdrawCallbackMsg
	c, err := loadChain(ctx, db, tx, &msg)
	if err != nil {
		return nil, err
	}
	if err := c.result.Err(); err != nil {
		return c.abort(db, info, errors.Wrap(err, "withdraw"))
	}
	if err := c.state.credit(msg.Amount); err != nil {
		return nil, err
	}
	info.Logger().Info("rewards withdrawn", "amount", msg.Amount, "available", c.state.AvailableRewards)
	if msg.UnstakeAll {
		if err := issueUnstake(db, info, c.conf, msg.Staked); err != nil {
			return nil, err
		}
	}

	if err := c.state.advance(evWithdrawn); err != nil {
		return nil, err
	}
	released, settleErr := h.settle(db, info, c.conf, c.state)
	if err := c.state.advance(evSettled); err != nil {
		return nil, err
	}
	if err := saveState(db, c.state); err != nil {
		return nil, err
	}
	if settleErr != nil {
		// Withdrawn rewards stay available for a later release.
		info.Logger().Error("settlement failed", "err", settleErr)
		return &harvest.DeliverResult{Log: settleErr.Error(), Outcome: "settlement_failed"}, nil
	}
	if released.IsZero() {
		return &harvest.DeliverResult{Outcome: "nothing_to_do"}, nil
	}
	return &harvest.DeliverResult{
		Data:    []byte(released.String()),
		Outcome: "distributed",
	}, nil
}

// settle runs the release in its own cache wrap so that a failed release
// leaves neither the state nor the store modified.
func (h WithdrawCallbackHandler) settle(db harvest.KVStore, info harvest.BlockInfo, conf *Configuration, s *State) (coin.Amount, error) {
	cdb, ok := db.(harvest.CacheableKVStore)
	if !ok {
		return h.rel.release(db, info, conf, s)
	}
	cache := cdb.CacheWrap()
	defer cache.Discard()

	before := *s
	released, err := h.rel.release(cache, info, conf, s)
	if err != nil {
		*s = before
		return coin.Amount{}, err
	}
	if err := cache.Write(); err != nil {
		*s = before
		return coin.Amount{}, errors.Wrap(err, "write settlement")
	}
	return released, nil
}

// UnstakeCallbackHandler records the unstaked amount in the deferred
// ledger. It does not belong to the chain and never changes the phase.
type UnstakeCallbackHandler struct {
	ledger ledger.Ledger
}

var _ harvest.Handler = UnstakeCallbackHandler{}

func (h UnstakeCallbackHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	var msg UnstakeCallbackMsg
	if _, err := h.validate(ctx, tx, &msg); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h UnstakeCallbackHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	var msg UnstakeCallbackMsg
	res, err := h.validate(ctx, tx, &msg)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		info.Logger().Error("unstake failed", "amount", msg.Amount, "err", err)
		return &harvest.DeliverResult{Log: err.Error(), Outcome: "failed"}, nil
	}
	if err := h.ledger.Insert(db, msg.Period, msg.Amount); err != nil {
		return nil, errors.Wrap(err, "ledger")
	}
	info.Logger().Info("deferred payout recorded", "period", msg.Period, "amount", msg.Amount)
	return &harvest.DeliverResult{Outcome: "recorded"}, nil
}

func (h UnstakeCallbackHandler) validate(ctx context.Context, tx harvest.Tx, msg *UnstakeCallbackMsg) (promise.Result, error) {
	res, err := promise.RequireResult(ctx)
	if err != nil {
		return res, err
	}
	if err := harvest.LoadMsg(tx, msg); err != nil {
		return res, errors.Wrap(err, "load msg")
	}
	return res, nil
}

// ReleaseHandler distributes the rewards that are eligible now.
type ReleaseHandler struct {
	auth x.Authenticator
	rel  releaser
}

var _ harvest.Handler = ReleaseHandler{}

func (h ReleaseHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h ReleaseHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	conf, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	s, err := loadState(db)
	if err != nil {
		return nil, err
	}
	released, err := h.rel.release(db, info, conf, s)
	if err != nil {
		return nil, err
	}
	if released.IsZero() {
		return nil, errors.Wrap(errors.ErrNothingToDo, "no rewards eligible for release")
	}
	if err := saveState(db, s); err != nil {
		return nil, err
	}
	return &harvest.DeliverResult{
		Data:    []byte(released.String()),
		Outcome: "distributed",
	}, nil
}

func (h ReleaseHandler) validate(ctx context.Context, db harvest.KVStore, tx harvest.Tx) (*Configuration, error) {
	var msg ReleaseMsg
	if err := harvest.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	if err := authorizeTrigger(ctx, h.auth, conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// SetterHandler applies the owner only configuration setters.
type SetterHandler struct {
	auth x.Authenticator
}

var _ harvest.Handler = SetterHandler{}

func (h SetterHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	if _, err := h.apply(ctx, db, tx); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h SetterHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	path, err := h.apply(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	info.Logger().Info("configuration changed", "path", path)
	return &harvest.DeliverResult{Outcome: "updated"}, nil
}

func (h SetterHandler) apply(ctx context.Context, db harvest.KVStore, tx harvest.Tx) (string, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return "", errors.Wrap(err, "cannot get transaction message")
	}
	if err := msg.Validate(); err != nil {
		return "", errors.Wrap(err, "invalid message")
	}
	conf, err := loadConf(db)
	if err != nil {
		return "", err
	}
	if !h.auth.HasAccount(ctx, conf.Owner) {
		return "", errors.Wrap(errors.ErrUnauthorized, "owner only")
	}
	switch m := msg.(type) {
	case *SetFeeScheduleMsg:
		conf.FeeSchedule = m.Schedule.Normalize()
	case *SetFarmDurationMsg:
		conf.FarmDuration = m.Duration
	case *SetRewardWindowMsg:
		conf.RewardWindow = m.Window
	default:
		return "", errors.Wrapf(errors.ErrMsg, "unsupported setter %T", msg)
	}
	if err := gconf.Save(db, confPkg, conf); err != nil {
		return "", errors.Wrap(err, "save configuration")
	}
	return msg.Path(), nil
}
