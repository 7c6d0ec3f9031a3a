package x

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
)

// Refunder returns the amount of a failed payment back to the pool of
// distributable funds.
type Refunder interface {
	Refund(db harvest.KVStore, info harvest.BlockInfo, amount coin.Amount) error
}
