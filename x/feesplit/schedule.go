package feesplit

import (
	"fmt"
	"math/big"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
)

// MaxEntries is the maximum number of beneficiaries of a schedule.
const MaxEntries = 32

// Entry declares the share of a single beneficiary.
type Entry struct {
	Beneficiary harvest.AccountID `json:"beneficiary"`
	Fraction    harvest.Fraction  `json:"fraction"`
}

// Schedule is the ordered list of beneficiaries and their shares.
type Schedule []Entry

// Validate returns an ErrSchedule if the schedule cannot be used for
// distribution. Issues with a specific entry are reported as field errors.
func (s Schedule) Validate() error {
	switch n := len(s); {
	case n == 0:
		return errors.Wrap(errors.ErrSchedule, "no beneficiaries")
	case n > MaxEntries:
		return errors.Wrapf(errors.ErrSchedule, "%d beneficiaries, at most %d allowed", n, MaxEntries)
	}

	var errs error
	seen := make(map[harvest.AccountID]struct{}, len(s))
	sum := new(big.Rat)
	for i, e := range s {
		field := fmt.Sprintf("Schedule.%d", i)
		if err := e.Beneficiary.Validate(); err != nil {
			errs = errors.AppendField(errs, field+".Beneficiary", err)
		} else if _, ok := seen[e.Beneficiary]; ok {
			errs = errors.AppendField(errs, field+".Beneficiary", errors.Wrapf(errors.ErrDuplicate, "%s", e.Beneficiary))
		}
		seen[e.Beneficiary] = struct{}{}

		f := e.Fraction
		switch {
		case f.Denominator == 0:
			errs = errors.AppendField(errs, field+".Fraction", errors.Wrap(errors.ErrSchedule, "zero denominator"))
			continue
		case f.Numerator == 0:
			errs = errors.AppendField(errs, field+".Fraction", errors.Wrap(errors.ErrSchedule, "zero share"))
		case f.Numerator > f.Denominator:
			errs = errors.AppendField(errs, field+".Fraction", errors.Wrapf(errors.ErrSchedule, "%s is greater than one", f))
		}
		sum.Add(sum, f.Rat())
	}
	if errs != nil {
		return errs
	}
	if sum.Cmp(big.NewRat(1, 1)) != 0 {
		return errors.Wrapf(errors.ErrSchedule, "fractions sum up to %s", sum.RatString())
	}
	return nil
}

// Normalize returns a copy of the schedule with every fraction reduced to
// its smallest representation.
func (s Schedule) Normalize() Schedule {
	out := make(Schedule, len(s))
	for i, e := range s {
		e.Fraction = e.Fraction.Normalize()
		out[i] = e
	}
	return out
}

// Share is the amount a single beneficiary receives.
type Share struct {
	Beneficiary harvest.AccountID `json:"beneficiary"`
	Amount      coin.Amount       `json:"amount"`
}

// Split computes the share of every beneficiary in schedule order, skipping
// zero shares. The returned residual is the part of the total lost to the
// floor rounding. Schedule must be valid.
func Split(total coin.Amount, s Schedule) ([]Share, coin.Amount, error) {
	shares := make([]Share, 0, len(s))
	residual := total
	for _, e := range s {
		amount, err := harvest.ShareFraction(total, e.Fraction)
		if err != nil {
			return nil, coin.Amount{}, errors.Wrapf(err, "share of %s", e.Beneficiary)
		}
		if amount.IsZero() {
			continue
		}
		if residual, err = residual.Sub(amount); err != nil {
			return nil, coin.Amount{}, errors.Wrap(errors.ErrSchedule, "shares exceed the total")
		}
		shares = append(shares, Share{Beneficiary: e.Beneficiary, Amount: amount})
	}
	return shares, residual, nil
}
