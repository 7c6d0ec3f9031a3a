package harvest

import (
	"encoding/json"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
)

// Gateway builds the calls toward a staking pool.
type Gateway struct {
	pool harvest.AccountID
}

// NewGateway returns a gateway to given staking pool.
func NewGateway(pool harvest.AccountID) Gateway {
	return Gateway{pool: pool}
}

// Ping makes the pool distribute its rewards.
func (g Gateway) Ping() (harvest.Call, error) {
	return harvest.FunctionCall(g.pool, "ping", nil, coin.Amount{})
}

// UnstakeAll unstakes the whole staked balance. Unstaked balance becomes
// withdrawable after the pool's unlock delay.
func (g Gateway) UnstakeAll() (harvest.Call, error) {
	return harvest.FunctionCall(g.pool, "unstake_all", nil, coin.Amount{})
}

// GetAccount reads the position of given account.
func (g Gateway) GetAccount(id harvest.AccountID) (harvest.Call, error) {
	return harvest.FunctionCall(g.pool, "get_account", accountArgs{AccountID: id}, coin.Amount{})
}

// Withdraw transfers amount of unlocked balance to the caller.
func (g Gateway) Withdraw(amount coin.Amount) (harvest.Call, error) {
	return harvest.FunctionCall(g.pool, "withdraw", withdrawArgs{Amount: amount}, coin.Amount{})
}

// WithdrawAll transfers all unlocked balance to the caller.
func (g Gateway) WithdrawAll() (harvest.Call, error) {
	return harvest.FunctionCall(g.pool, "withdraw_all", nil, coin.Amount{})
}

type accountArgs struct {
	AccountID harvest.AccountID `json:"account_id"`
}

type withdrawArgs struct {
	Amount coin.Amount `json:"amount"`
}

// AccountSnapshot is the position of an account in the staking pool.
type AccountSnapshot struct {
	AccountID       harvest.AccountID `json:"account_id"`
	UnstakedBalance coin.Amount       `json:"unstaked_balance"`
	StakedBalance   coin.Amount       `json:"staked_balance"`
	CanWithdraw     bool              `json:"can_withdraw"`
}

// DecodeAccount parses the get_account response.
func DecodeAccount(raw json.RawMessage) (AccountSnapshot, error) {
	var a AccountSnapshot
	if len(raw) == 0 {
		return a, errors.Wrap(errors.ErrRemote, "empty account")
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return a, errors.Wrapf(errors.ErrRemote, "cannot decode account: %s", err)
	}
	return a, nil
}
