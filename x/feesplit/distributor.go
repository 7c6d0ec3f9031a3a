package feesplit

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x/promise"
)

// Distribute splits total according to the schedule and issues one transfer
// per non-zero share. It returns the amount that was issued and the
// residual that was not distributed.
func Distribute(db harvest.KVStore, info harvest.BlockInfo, total coin.Amount, s Schedule) (issued, residual coin.Amount, err error) {
	shares, residual, err := Split(total, s)
	if err != nil {
		return coin.Amount{}, coin.Amount{}, err
	}
	for _, sh := range shares {
		call := harvest.Transfer(sh.Beneficiary, sh.Amount)
		cb := &TransferCallbackMsg{Beneficiary: sh.Beneficiary, Amount: sh.Amount}
		if _, err := promise.Issue(db, info, cb, call); err != nil {
			return coin.Amount{}, coin.Amount{}, errors.Wrapf(err, "transfer to %s", sh.Beneficiary)
		}
		if issued, err = issued.Add(sh.Amount); err != nil {
			return coin.Amount{}, coin.Amount{}, err
		}
	}
	info.Logger().Info("fee split issued",
		"total", total, "transfers", len(shares), "residual", residual)
	return issued, residual, nil
}
