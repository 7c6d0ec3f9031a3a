/*
Package app links together all the extensions to construct the harvester
daemon.
*/
package app

import (
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/app"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x"
	"github.com/iov-one/harvest/x/feesplit"
	harvester "github.com/iov-one/harvest/x/harvest"
	"github.com/iov-one/harvest/x/ledger"
	"github.com/iov-one/harvest/x/swap"
	"github.com/tendermint/tendermint/libs/log"
)

// Authenticator returns the authentication used by all handlers. The
// caller is declared by whoever submits a message to the engine.
func Authenticator() *x.CtxAuth {
	return &x.CtxAuth{Key: "harvestd"}
}

// Router returns a router dispatching to all harvester handlers.
func Router(authFn x.Authenticator) *app.Router {
	r := app.NewRouter()
	harvester.RegisterRoutes(r, authFn)
	feesplit.RegisterRoutes(r, harvester.Accounts{})
	swap.RegisterRoutes(r, authFn, harvester.Accounts{})
	return r
}

// QueryRouter returns a default query router, allowing access to the state
// of the harvester and its ledger.
func QueryRouter() harvest.QueryRouter {
	r := harvest.NewQueryRouter()
	r.RegisterAll(
		harvester.RegisterQuery,
		ledger.RegisterQuery,
	)
	return r
}

// Initializers returns the initializers of all extensions that are
// configured from the genesis file.
func Initializers() harvest.Initializer {
	return harvest.ChainInitializers(
		harvester.Initializer{},
	)
}

// InitStore constructs the harvester described by the genesis in an empty
// store.
func InitStore(db harvest.CacheableKVStore, gen app.Genesis, head harvest.Head) error {
	return app.InitStore(db, gen, head, Initializers())
}

// Options configure the engine of an initialized store.
type Options struct {
	Head     harvest.ChainHead
	Executor harvest.Executor
	Logger   log.Logger
	Workers  int
}

// NewEngine returns the engine of the harvester initialized in given
// store.
func NewEngine(db harvest.CacheableKVStore, opts Options) (*app.Engine, error) {
	self, err := app.LoadSelf(db)
	if err != nil {
		return nil, errors.Wrap(err, "load self")
	}
	if self == "" {
		return nil, errors.Wrap(errors.ErrState, "store is not initialized")
	}
	auth := Authenticator()
	return app.NewEngine(app.Config{
		Self:     self,
		Store:    db,
		Head:     opts.Head,
		Executor: opts.Executor,
		Router:   Router(auth),
		Queries:  QueryRouter(),
		Auth:     auth,
		Logger:   opts.Logger,
		Workers:  opts.Workers,
	})
}
