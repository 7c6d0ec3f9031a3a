package ledger

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/orm"
)

// Unpaid is the amount waiting for a single unlock period.
type Unpaid struct {
	Metadata *harvest.Metadata `json:"metadata"`
	Amount   coin.Amount       `json:"amount"`
}

var _ orm.Model = (*Unpaid)(nil)

func (u *Unpaid) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", u.Metadata.Validate())
	if u.Amount.IsZero() {
		errs = errors.AppendField(errs, "Amount", errors.ErrAmount)
	}
	return errs
}

// PeriodAmount is a single ledger entry as returned by the paginated read.
type PeriodAmount struct {
	Period uint64      `json:"period"`
	Amount coin.Amount `json:"amount"`
}

// NewBucket returns the bucket storing unpaid amounts under the 8 byte
// big-endian period.
func NewBucket() orm.ModelBucket {
	return orm.NewModelBucket("unpaid")
}
