package swap

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
)

const (
	pathOnBuy          = "swap/on_buy"
	pathForwardBalance = "swap/forward_balance"
	pathOnBalance      = "swap/on_balance"
)

// BuyCallbackMsg receives the amount bought for Amount.
type BuyCallbackMsg struct {
	Amount coin.Amount `json:"amount"`
}

var _ harvest.Msg = (*BuyCallbackMsg)(nil)

func (BuyCallbackMsg) Path() string {
	return pathOnBuy
}

func (m *BuyCallbackMsg) Validate() error {
	if m.Amount.IsZero() {
		return errors.Field("Amount", errors.ErrAmount, "nothing was sold")
	}
	return nil
}

// ForwardBalanceMsg forwards the whole balance of the bought asset held by
// the harvester.
type ForwardBalanceMsg struct{}

var _ harvest.Msg = (*ForwardBalanceMsg)(nil)

func (ForwardBalanceMsg) Path() string {
	return pathForwardBalance
}

func (ForwardBalanceMsg) Validate() error {
	return nil
}

// BalanceCallbackMsg receives the balance of the bought asset.
type BalanceCallbackMsg struct{}

var _ harvest.Msg = (*BalanceCallbackMsg)(nil)

func (BalanceCallbackMsg) Path() string {
	return pathOnBalance
}

func (BalanceCallbackMsg) Validate() error {
	return nil
}
