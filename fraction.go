package harvest

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
)

// Fraction is a rational number represented by a numerator and a
// denominator.
type Fraction struct {
	Numerator   uint32 `json:"numerator"`
	Denominator uint32 `json:"denominator"`
}

// String returns a human readable fraction representation.
func (f Fraction) String() string {
	if f.Numerator == 0 {
		return "0"
	}
	if f.Denominator == 1 {
		return fmt.Sprint(f.Numerator)
	}
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// UnmarshalJSON accepts both the human readable "n/d" string format and
// the verbose {"numerator": n, "denominator": d} object.
func (f *Fraction) UnmarshalJSON(raw []byte) error {
	var human string
	if err := json.Unmarshal(raw, &human); err == nil {
		frac, err := ParseFractionString(human)
		if err != nil {
			return errors.Wrap(err, "fraction string")
		}
		*f = frac
		return nil
	}

	var verbose struct {
		Numerator   uint32 `json:"numerator"`
		Denominator uint32 `json:"denominator"`
	}
	if err := json.Unmarshal(raw, &verbose); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	f.Numerator = verbose.Numerator
	f.Denominator = verbose.Denominator
	return nil
}

// Validate returns an error if this fraction represents an invalid value.
func (f Fraction) Validate() error {
	if f.Denominator == 0 {
		return errors.Wrap(errors.ErrState, "zero division")
	}
	return nil
}

// Rat returns the exact rational value of this fraction. Denominator must
// not be zero.
func (f Fraction) Rat() *big.Rat {
	return new(big.Rat).SetFrac64(int64(f.Numerator), int64(f.Denominator))
}

// ShareFraction returns floor(total * f). Fraction must not be greater than
// one.
func ShareFraction(total coin.Amount, f Fraction) (coin.Amount, error) {
	if err := f.Validate(); err != nil {
		return coin.Amount{}, err
	}
	return coin.ShareOf(total, uint64(f.Numerator), uint64(f.Denominator))
}

// Normalize returns a new fraction instance that has its numerator and
// denominator reduced to the smallest possible representation.
func (f Fraction) Normalize() Fraction {
	div := uintGcd(f.Numerator, f.Denominator)
	if div == 0 {
		return f
	}
	return Fraction{
		Numerator:   f.Numerator / div,
		Denominator: f.Denominator / div,
	}
}

func uintGcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ParseFractionString returns a fraction value that is represented by given
// string. This function fails if given string does not represent a fraction
// value. It does not fail if the format is correct but the value is invalid
// (i.e. value of "2/0").
func ParseFractionString(raw string) (Fraction, error) {
	chunks := strings.SplitN(raw, "/", 2)
	n, err := strconv.ParseUint(strings.TrimSpace(chunks[0]), 10, 32)
	if err != nil {
		return Fraction{}, errors.Wrap(errors.ErrInput, "numerator")
	}
	if len(chunks) == 1 {
		return Fraction{Numerator: uint32(n), Denominator: 1}, nil
	}
	d, err := strconv.ParseUint(strings.TrimSpace(chunks[1]), 10, 32)
	if err != nil {
		return Fraction{}, errors.Wrap(errors.ErrInput, "denominator")
	}
	return Fraction{Numerator: uint32(n), Denominator: uint32(d)}, nil
}
