package harvesttest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/jonboulle/clockwork"
)

// EpochLength is the duration of a single epoch of the simulated chain.
const EpochLength = 12 * time.Hour

// UnlockEpochs is the number of epochs unstaked balance stays locked.
const UnlockEpochs = 4

// Pool simulates the external chain a harvester talks to: a staking pool
// holding the harvester's account, an exchange selling a token and plain
// transfers. It serves as both the executor of remote calls and the chain
// head. Safe for concurrent use.
type Pool struct {
	mu sync.Mutex

	clock   clockwork.Clock
	genesis time.Time

	id       harvest.AccountID
	self     harvest.AccountID
	staked   coin.Amount
	unstaked coin.Amount
	unlockAt uint64
	reward   coin.Amount
	// liquid is the balance of the harvester account outside the pool.
	liquid coin.Amount

	exchange harvest.AccountID
	rate     harvest.Fraction
	tokens   map[harvest.AccountID]coin.Amount

	received map[harvest.AccountID]coin.Amount
	failures map[string]error
	calls    []harvest.Call
}

var (
	_ harvest.Executor  = (*Pool)(nil)
	_ harvest.ChainHead = (*Pool)(nil)
)

// NewPool returns a staking pool with given account identity. Epoch zero
// starts at the current time of the clock.
func NewPool(clock clockwork.Clock, id harvest.AccountID) *Pool {
	return &Pool{
		clock:    clock,
		genesis:  clock.Now(),
		id:       id,
		self:     Self,
		rate:     harvest.Fraction{Numerator: 1, Denominator: 1},
		tokens:   make(map[harvest.AccountID]coin.Amount),
		received: make(map[harvest.AccountID]coin.Amount),
		failures: make(map[string]error),
	}
}

// Head returns the current time of the clock and the epoch it falls into.
func (p *Pool) Head(ctx context.Context) (harvest.Head, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	return harvest.Head{Time: now, Epoch: p.epoch(now)}, nil
}

func (p *Pool) epoch(now time.Time) uint64 {
	if now.Before(p.genesis) {
		return 0
	}
	return uint64(now.Sub(p.genesis) / EpochLength)
}

// Stake sets the staked balance of the harvester.
func (p *Pool) Stake(amount coin.Amount) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staked = amount
}

// Unstaked sets the unstaked balance of the harvester, withdrawable from
// given epoch on.
func (p *Pool) Unstaked(amount coin.Amount, unlockAt uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unstaked = amount
	p.unlockAt = unlockAt
}

// Reward accrues amount to the harvester's stake on the next ping.
func (p *Pool) Reward(amount coin.Amount) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reward = mustAdd(p.reward, amount)
}

// Fund transfers amount to the harvester account from outside, as a donor
// would do.
func (p *Pool) Fund(amount coin.Amount) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.liquid = mustAdd(p.liquid, amount)
}

// Balance returns the liquid balance of the harvester account.
func (p *Pool) Balance() coin.Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liquid
}

// Exchange declares the account selling a token for the deposit of a buy
// call at given rate.
func (p *Pool) Exchange(id harvest.AccountID, rate harvest.Fraction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchange = id
	p.rate = rate
}

// FailNext makes the next call of given method fail with err. Use
// "transfer" and "view_account" for the calls of those actions.
func (p *Pool) FailNext(method string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[method] = err
}

// Received returns the total transferred to given account.
func (p *Pool) Received(id harvest.AccountID) coin.Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.received[id]
}

// Tokens returns the token balance of given account.
func (p *Pool) Tokens(id harvest.AccountID) coin.Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokens[id]
}

// Account returns the harvester's position in the pool.
func (p *Pool) Account() (staked, unstaked coin.Amount) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.staked, p.unstaked
}

// Calls returns all calls executed so far, in execution order.
func (p *Pool) Calls() []harvest.Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]harvest.Call(nil), p.calls...)
}

// Execute runs the call against the simulated chain.
func (p *Pool) Execute(ctx context.Context, c harvest.Call) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrRemote, err.Error())
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)

	method := c.Method
	switch c.Action {
	case harvest.ActionTransfer:
		method = "transfer"
	case harvest.ActionViewAccount:
		method = "view_account"
	}
	if err, ok := p.failures[method]; ok {
		delete(p.failures, method)
		return nil, err
	}

	if c.Action == harvest.ActionViewAccount {
		if c.Receiver != p.self {
			return json.Marshal(map[string]coin.Amount{"amount": {}})
		}
		return json.Marshal(map[string]coin.Amount{"amount": p.liquid})
	}
	// Deposits leave the harvester account before the call runs and come
	// back if it fails.
	rest, err := p.liquid.Sub(c.Deposit)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrRemote, "not enough balance to attach %s", c.Deposit)
	}
	p.liquid = rest
	res, err := p.execute(c)
	if err != nil {
		p.liquid = mustAdd(p.liquid, c.Deposit)
	}
	return res, err
}

func (p *Pool) execute(c harvest.Call) (json.RawMessage, error) {
	switch {
	case c.Action == harvest.ActionTransfer:
		p.received[c.Receiver] = mustAdd(p.received[c.Receiver], c.Deposit)
		return nil, nil
	case c.Receiver == p.id:
		return p.staking(c)
	case c.Receiver == p.exchange && p.exchange != "":
		return p.token(c)
	default:
		return nil, errors.Wrapf(errors.ErrRemote, "account %s does not exist", c.Receiver)
	}
}

func (p *Pool) staking(c harvest.Call) (json.RawMessage, error) {
	epoch := p.epoch(p.clock.Now())
	switch c.Method {
	case "ping":
		p.staked = mustAdd(p.staked, p.reward)
		p.reward = coin.Amount{}
		return nil, nil
	case "get_account":
		var args struct {
			AccountID harvest.AccountID `json:"account_id"`
		}
		if err := json.Unmarshal(c.Args, &args); err != nil {
			return nil, errors.Wrap(errors.ErrRemote, err.Error())
		}
		acc := map[string]interface{}{
			"account_id":       args.AccountID,
			"unstaked_balance": coin.Amount{},
			"staked_balance":   coin.Amount{},
			"can_withdraw":     true,
		}
		if args.AccountID == p.self {
			acc["unstaked_balance"] = p.unstaked
			acc["staked_balance"] = p.staked
			acc["can_withdraw"] = epoch >= p.unlockAt
		}
		return json.Marshal(acc)
	case "unstake_all":
		p.unstaked = mustAdd(p.unstaked, p.staked)
		p.staked = coin.Amount{}
		p.unlockAt = epoch + UnlockEpochs
		return nil, nil
	case "withdraw", "withdraw_all":
		amount := p.unstaked
		if c.Method == "withdraw" {
			var args struct {
				Amount coin.Amount `json:"amount"`
			}
			if err := json.Unmarshal(c.Args, &args); err != nil {
				return nil, errors.Wrap(errors.ErrRemote, err.Error())
			}
			amount = args.Amount
		}
		if epoch < p.unlockAt {
			return nil, errors.Wrap(errors.ErrRemote, "unstaked balance is not yet available")
		}
		rest, err := p.unstaked.Sub(amount)
		if err != nil {
			return nil, errors.Wrap(errors.ErrRemote, "not enough unstaked balance")
		}
		p.unstaked = rest
		p.liquid = mustAdd(p.liquid, amount)
		return nil, nil
	default:
		return nil, errors.Wrapf(errors.ErrRemote, "method %s not found", c.Method)
	}
}

func (p *Pool) token(c harvest.Call) (json.RawMessage, error) {
	switch c.Method {
	case "buy":
		bought, err := coin.ShareOf(c.Deposit, uint64(p.rate.Numerator), uint64(p.rate.Denominator))
		if err != nil {
			return nil, errors.Wrap(errors.ErrRemote, err.Error())
		}
		p.tokens[p.self] = mustAdd(p.tokens[p.self], bought)
		return json.Marshal(bought)
	case "ft_balance_of":
		var args struct {
			AccountID harvest.AccountID `json:"account_id"`
		}
		if err := json.Unmarshal(c.Args, &args); err != nil {
			return nil, errors.Wrap(errors.ErrRemote, err.Error())
		}
		return json.Marshal(p.tokens[args.AccountID])
	case "ft_transfer_call":
		var args struct {
			Receiver harvest.AccountID `json:"receiver_id"`
			Amount   coin.Amount       `json:"amount"`
		}
		if err := json.Unmarshal(c.Args, &args); err != nil {
			return nil, errors.Wrap(errors.ErrRemote, err.Error())
		}
		rest, err := p.tokens[p.self].Sub(args.Amount)
		if err != nil {
			return nil, errors.Wrap(errors.ErrRemote, "not enough tokens")
		}
		p.tokens[p.self] = rest
		p.tokens[args.Receiver] = mustAdd(p.tokens[args.Receiver], args.Amount)
		return json.Marshal(args.Amount)
	default:
		return nil, errors.Wrapf(errors.ErrRemote, "method %s not found", c.Method)
	}
}

func mustAdd(a, b coin.Amount) coin.Amount {
	sum, err := a.Add(b)
	if err != nil {
		panic(err)
	}
	return sum
}
