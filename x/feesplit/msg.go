package feesplit

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
)

const pathOnTransfer = "feesplit/on_transfer"

// TransferCallbackMsg receives the outcome of a single share transfer.
type TransferCallbackMsg struct {
	Beneficiary harvest.AccountID `json:"beneficiary"`
	Amount      coin.Amount       `json:"amount"`
}

var _ harvest.Msg = (*TransferCallbackMsg)(nil)

func (TransferCallbackMsg) Path() string {
	return pathOnTransfer
}

func (m *TransferCallbackMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Beneficiary", m.Beneficiary.Validate())
	if m.Amount.IsZero() {
		errs = errors.AppendField(errs, "Amount", errors.ErrAmount)
	}
	return errs
}
