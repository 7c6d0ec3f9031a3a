package ledger

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/orm"
)

const (
	// DefaultPageLimit is used when the paginated read does not declare a
	// limit.
	DefaultPageLimit = 50
	// MaxPageLimit is the largest page size.
	MaxPageLimit = 500
)

// Ledger is the deferred payment ledger.
type Ledger struct {
	b orm.ModelBucket
}

// New returns a ledger using the default bucket.
func New() Ledger {
	return Ledger{b: NewBucket()}
}

// Insert adds amount to the entry of given period. Zero amount is a no-op.
func (l Ledger) Insert(db harvest.KVStore, period uint64, amount coin.Amount) error {
	if amount.IsZero() {
		return nil
	}
	key := orm.EncodeSequence(period)
	var u Unpaid
	switch err := l.b.One(db, key, &u); {
	case err == nil:
		sum, err := u.Amount.Add(amount)
		if err != nil {
			return errors.Wrapf(err, "period %d", period)
		}
		u.Amount = sum
	case errors.ErrNotFound.Is(err):
		u = Unpaid{Metadata: &harvest.Metadata{Schema: 1}, Amount: amount}
	default:
		return errors.Wrap(err, "cannot load entry")
	}
	return l.b.Put(db, key, &u)
}

// Collect removes every entry with period not greater than upTo and returns
// their sum together with the removed entries.
func (l Ledger) Collect(db harvest.KVStore, upTo uint64) (coin.Amount, []PeriodAmount, error) {
	var end []byte
	if upTo < ^uint64(0) {
		end = orm.EncodeSequence(upTo + 1)
	}
	due, err := l.read(db, nil, end, 0, 0)
	if err != nil {
		return coin.Amount{}, nil, err
	}

	var total coin.Amount
	for _, e := range due {
		if total, err = total.Add(e.Amount); err != nil {
			return coin.Amount{}, nil, err
		}
		if err := l.b.Delete(db, orm.EncodeSequence(e.Period)); err != nil {
			return coin.Amount{}, nil, errors.Wrapf(err, "cannot remove period %d", e.Period)
		}
	}
	return total, due, nil
}

// Page returns up to limit entries in ascending period order, skipping the
// first fromIndex entries. Zero limit means the default, a limit above
// MaxPageLimit is capped.
func (l Ledger) Page(db harvest.ReadOnlyKVStore, fromIndex, limit uint64) ([]PeriodAmount, error) {
	switch {
	case limit == 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	return l.read(db, nil, nil, fromIndex, limit)
}

// Total returns the sum of all entries.
func (l Ledger) Total(db harvest.ReadOnlyKVStore) (coin.Amount, error) {
	all, err := l.read(db, nil, nil, 0, 0)
	if err != nil {
		return coin.Amount{}, err
	}
	var total coin.Amount
	for _, e := range all {
		if total, err = total.Add(e.Amount); err != nil {
			return coin.Amount{}, err
		}
	}
	return total, nil
}

// read returns entries in [start, end), skipping the first skip of them.
// Zero limit reads all.
func (l Ledger) read(db harvest.ReadOnlyKVStore, start, end []byte, skip, limit uint64) ([]PeriodAmount, error) {
	it, err := l.b.Range(db, start, end)
	if err != nil {
		return nil, err
	}
	defer it.Release()

	var res []PeriodAmount
	for limit == 0 || uint64(len(res)) < limit {
		var u Unpaid
		key, err := it.LoadNext(&u)
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "cannot load entry")
		}
		if skip > 0 {
			skip--
			continue
		}
		period, err := orm.DecodeSequence(key)
		if err != nil {
			return nil, err
		}
		res = append(res, PeriodAmount{Period: period, Amount: u.Amount})
	}
	return res, nil
}
