package x

import (
	"context"

	"github.com/iov-one/harvest/coin"
)

type depositKey struct{}

// WithDeposit returns a context carrying the amount attached to the
// current operation.
func WithDeposit(ctx context.Context, amount coin.Amount) context.Context {
	return context.WithValue(ctx, depositKey{}, amount)
}

// Deposit returns the amount attached to the current operation, zero if
// nothing was attached.
func Deposit(ctx context.Context) coin.Amount {
	amount, _ := ctx.Value(depositKey{}).(coin.Amount)
	return amount
}
