package x

import (
	"context"

	"github.com/iov-one/harvest"
)

// Authenticator is an interface we can use to extract authentication info
// from the context. This should be passed into the constructor of
// handlers, so we can plug in another authentication system.
type Authenticator interface {
	// Caller returns the account that invoked the current operation.
	Caller(context.Context) (harvest.AccountID, bool)
	// HasAccount returns true if given account invoked the current
	// operation.
	HasAccount(context.Context, harvest.AccountID) bool
}

// CtxAuth keeps the caller identity in the context. The engine sets it for
// every entry point invocation.
type CtxAuth struct {
	// Key used to set and retrieve the caller from the context. For
	// convenience only string type keys are allowed.
	Key string
}

var _ Authenticator = (*CtxAuth)(nil)

// WithCaller returns a context declaring given account as the caller.
func (a *CtxAuth) WithCaller(ctx context.Context, id harvest.AccountID) context.Context {
	return context.WithValue(ctx, ctxKey(a.Key), id)
}

func (a *CtxAuth) Caller(ctx context.Context) (harvest.AccountID, bool) {
	id, ok := ctx.Value(ctxKey(a.Key)).(harvest.AccountID)
	return id, ok && id != ""
}

func (a *CtxAuth) HasAccount(ctx context.Context, id harvest.AccountID) bool {
	caller, ok := a.Caller(ctx)
	return ok && caller == id
}

type ctxKey string
