package coin

import (
	"github.com/holiman/uint256"
	"github.com/iov-one/harvest/errors"
)

// Share returns floor(total * numerator / denominator).
//
// The multiplication is done in 256 bits, so it never overflows for any
// two 128-bit operands. Only the floor rounding is applied. A result wider
// than 128 bits (numerator greater than denominator) is ErrOverflow.
func Share(total, numerator, denominator Amount) (Amount, error) {
	if denominator.IsZero() {
		return Amount{}, errors.Wrap(errors.ErrInput, "zero denominator")
	}
	var prod uint256.Int
	prod.Mul(&total.v, &numerator.v)

	var res Amount
	res.v.Div(&prod, &denominator.v)
	if res.v.BitLen() > amountBits {
		return Amount{}, errors.Wrapf(errors.ErrOverflow, "%s * %s / %s", total, numerator, denominator)
	}
	return res, nil
}

// ShareOf is Share with machine sized ratio parts.
func ShareOf(total Amount, numerator, denominator uint64) (Amount, error) {
	return Share(total, NewAmount(numerator), NewAmount(denominator))
}
