package harvest

import (
	"regexp"

	"github.com/iov-one/harvest/errors"
)

// isValidAccountID follows the account naming rules of the external chain:
// lowercase alphanumeric parts separated by a single "-", "_" or ".".
var isValidAccountID = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`).MatchString

const (
	minAccountIDLen = 2
	maxAccountIDLen = 64
)

// AccountID is the identity of an account on the external chain. It is
// used for the harvester itself, its owner, the staking pool, the swap
// service and all beneficiaries.
type AccountID string

// Validate returns an error if this is not a well formed account identity.
func (a AccountID) Validate() error {
	if a == "" {
		return errors.Wrap(errors.ErrEmpty, "account id")
	}
	if n := len(a); n < minAccountIDLen || n > maxAccountIDLen {
		return errors.Wrapf(errors.ErrInput, "account id length %d", n)
	}
	if !isValidAccountID(string(a)) {
		return errors.Wrapf(errors.ErrInput, "account id %q", string(a))
	}
	return nil
}

// String returns the account identity or "(nil)" when empty.
func (a AccountID) String() string {
	if a == "" {
		return "(nil)"
	}
	return string(a)
}
