/*
Package coin implements the balance type used by the harvester and the
ratio arithmetic computed over it.

Balances of the external chain are unsigned 128-bit integers. They are
always serialized as decimal strings so that consumers without native
support for big integers do not lose precision.
*/
package coin

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/iov-one/harvest/errors"
)

// amountBits is the width of a balance on the external chain.
const amountBits = 128

// Amount is an unsigned 128-bit balance. The zero value is zero.
type Amount struct {
	v uint256.Int
}

// NewAmount returns an amount representing given value.
func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// MaxAmount returns the biggest representable amount, 2^128-1.
func MaxAmount() Amount {
	var a Amount
	a.v.Lsh(uint256.NewInt(1), amountBits)
	a.v.SubUint64(&a.v, 1)
	return a
}

// ParseAmount parses a base 10 representation of an amount.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, errors.Wrap(errors.ErrEmpty, "amount")
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, errors.Wrapf(errors.ErrAmount, "invalid amount %q", s)
	}
	return fromBig(b)
}

// MustParseAmount is like ParseAmount but panics on error. Use only for
// constants and in tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func fromBig(b *big.Int) (Amount, error) {
	if b.Sign() < 0 {
		return Amount{}, errors.Wrap(errors.ErrAmount, "negative amount")
	}
	if b.BitLen() > amountBits {
		return Amount{}, errors.Wrap(errors.ErrOverflow, "amount exceeds 128 bits")
	}
	var a Amount
	if overflow := a.v.SetFromBig(b); overflow {
		return Amount{}, errors.Wrap(errors.ErrOverflow, "amount exceeds 256 bits")
	}
	return a, nil
}

// String returns the base 10 representation.
func (a Amount) String() string {
	return a.v.ToBig().String()
}

// IsZero returns true if this amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// Equals returns true if both amounts represent the same value.
func (a Amount) Equals(b Amount) bool {
	return a.Cmp(b) == 0
}

// Uint64 returns the value as uint64 and false if it does not fit.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

// Add returns a+b. ErrOverflow is returned when the result does not fit
// in 128 bits.
func (a Amount) Add(b Amount) (Amount, error) {
	var res Amount
	res.v.Add(&a.v, &b.v)
	if res.v.BitLen() > amountBits {
		return Amount{}, errors.Wrapf(errors.ErrOverflow, "%s + %s", a, b)
	}
	return res, nil
}

// Sub returns a-b. ErrAmount is returned when b is greater than a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var res Amount
	if _, underflow := res.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, errors.Wrapf(errors.ErrAmount, "insufficient amount: %s - %s", a, b)
	}
	return res, nil
}

// Min returns the smaller of two amounts.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// MarshalJSON serializes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string and, for convenience in
// configuration files, a JSON number.
func (a *Amount) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return errors.Wrap(errors.ErrAmount, "amount must be a decimal string")
		}
		s = n.String()
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
