package app

import (
	"context"
	"strconv"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x"
	"github.com/iov-one/harvest/x/promise"
	"github.com/tendermint/tendermint/libs/log"
)

// DefaultWorkers is the number of promises executed concurrently.
const DefaultWorkers = 8

// Config declares everything an Engine is built from.
type Config struct {
	Self     harvest.AccountID
	Store    harvest.CacheableKVStore
	Head     harvest.ChainHead
	Executor harvest.Executor
	Router   *Router
	Queries  harvest.QueryRouter
	// Auth declares the caller of every submitted message. It must be the
	// same instance the handlers were registered with.
	Auth    *x.CtxAuth
	Logger  log.Logger
	Workers int
}

// Request is a message submitted to the engine.
type Request struct {
	Msg     harvest.Msg
	Caller  harvest.AccountID
	Deposit coin.Amount
}

// Engine is the single writer of the store. All submitted messages and
// promise resolutions are applied sequentially by the Run loop.
type Engine struct {
	self     harvest.AccountID
	store    harvest.CacheableKVStore
	head     harvest.ChainHead
	exec     harvest.Executor
	handler  harvest.Handler
	resolver *promise.Resolver
	queries  harvest.QueryRouter
	auth     *x.CtxAuth
	logger   log.Logger
	workers  int

	requests chan request
	lookups  chan lookup
	results  chan outcome
	idle     chan chan struct{}
	stopped  chan struct{}

	// Owned by the Run loop.
	lastHead harvest.Head
	order    []uint64
	ready    map[uint64]promise.Result
	waiters  []chan struct{}
}

type request struct {
	ctx   context.Context
	req   Request
	reply chan response
}

type response struct {
	res *harvest.DeliverResult
	err error
}

type lookup struct {
	path  string
	data  []byte
	reply chan lookupResponse
}

type lookupResponse struct {
	res interface{}
	err error
}

type outcome struct {
	id     uint64
	result promise.Result
}

// NewEngine returns an engine ready to Run.
func NewEngine(c Config) (*Engine, error) {
	var errs error
	errs = errors.AppendField(errs, "Self", c.Self.Validate())
	if c.Store == nil {
		errs = errors.AppendField(errs, "Store", errors.ErrEmpty)
	}
	if c.Head == nil {
		errs = errors.AppendField(errs, "Head", errors.ErrEmpty)
	}
	if c.Executor == nil {
		errs = errors.AppendField(errs, "Executor", errors.ErrEmpty)
	}
	if c.Router == nil {
		errs = errors.AppendField(errs, "Router", errors.ErrEmpty)
	}
	if c.Auth == nil {
		errs = errors.AppendField(errs, "Auth", errors.ErrEmpty)
	}
	if errs != nil {
		return nil, errs
	}
	if c.Logger == nil {
		c.Logger = log.NewNopLogger()
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}

	handler := ChainDecorators(
		NewLogging(),
		NewRecovery(),
	).WithHandler(c.Router)

	return &Engine{
		self:     c.Self,
		store:    c.Store,
		head:     c.Head,
		exec:     c.Executor,
		handler:  handler,
		resolver: promise.NewResolver(handler, c.Router),
		queries:  c.Queries,
		auth:     c.Auth,
		logger:   c.Logger,
		workers:  c.Workers,
		requests: make(chan request),
		lookups:  make(chan lookup),
		results:  make(chan outcome),
		idle:     make(chan chan struct{}),
		stopped:  make(chan struct{}),
		ready:    make(map[uint64]promise.Result),
	}, nil
}

// Run processes requests until the context is cancelled. Promises
// dispatched before a restart are resolved as failed first.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)

	pool := pond.NewPool(e.workers)
	defer pool.StopAndWait()

	if err := e.abandon(ctx); err != nil {
		return errors.Wrap(err, "abandon promises")
	}
	e.dispatch(ctx, pool)
	e.logger.Info("engine started", "self", e.self, "workers", e.workers)

	for {
		e.notifyIdle()
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped", "in_flight", len(e.order))
			return nil
		case r := <-e.requests:
			res, err := e.apply(r.ctx, r.req)
			r.reply <- response{res: res, err: err}
		case l := <-e.lookups:
			res, err := e.query(ctx, l.path, l.data)
			l.reply <- lookupResponse{res: res, err: err}
		case o := <-e.results:
			e.ready[o.id] = o.result
			e.resolveReady(ctx)
		case w := <-e.idle:
			e.waiters = append(e.waiters, w)
			continue
		}
		e.dispatch(ctx, pool)
	}
}

// Submit applies the message and returns the result of its delivery.
func (e *Engine) Submit(ctx context.Context, r Request) (*harvest.DeliverResult, error) {
	reply := make(chan response, 1)
	select {
	case e.requests <- request{ctx: ctx, req: r, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.stopped:
		return nil, errors.Wrap(errors.ErrState, "engine stopped")
	}
	res := <-reply
	return res.res, res.err
}

// Query runs the query registered under path against the current state.
func (e *Engine) Query(ctx context.Context, path string, data []byte) (interface{}, error) {
	reply := make(chan lookupResponse, 1)
	select {
	case e.lookups <- lookup{path: path, data: data, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.stopped:
		return nil, errors.Wrap(errors.ErrState, "engine stopped")
	}
	res := <-reply
	return res.res, res.err
}

// WaitIdle blocks until no promise is waiting for execution or
// resolution.
func (e *Engine) WaitIdle(ctx context.Context) error {
	w := make(chan struct{})
	select {
	case e.idle <- w:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return errors.Wrap(errors.ErrState, "engine stopped")
	}
	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) notifyIdle() {
	if len(e.order) != 0 {
		return
	}
	for _, w := range e.waiters {
		close(w)
	}
	e.waiters = nil
}

// blockInfo returns the information about the current chain head. When
// stale is allowed the last known head is used if the chain head cannot be
// read.
func (e *Engine) blockInfo(ctx context.Context, stale bool) (harvest.BlockInfo, error) {
	head, err := e.head.Head(ctx)
	if err != nil {
		if !stale || e.lastHead.Time.IsZero() {
			return harvest.BlockInfo{}, errors.Wrap(err, "chain head")
		}
		e.logger.Error("using last known chain head", "err", err, "time", e.lastHead.Time)
		head = e.lastHead
	}
	e.lastHead = head
	return harvest.NewBlockInfo(head, e.self, e.logger)
}

func (e *Engine) apply(ctx context.Context, r Request) (*harvest.DeliverResult, error) {
	if r.Msg == nil {
		return nil, errors.Wrap(errors.ErrMsg, "no message")
	}
	path := r.Msg.Path()
	res, err := e.deliver(ctx, r)
	requestsTotal.WithLabelValues(path, strconv.FormatUint(uint64(errors.Code(err)), 10)).Inc()
	return res, err
}

func (e *Engine) deliver(ctx context.Context, r Request) (*harvest.DeliverResult, error) {
	info, err := e.blockInfo(ctx, false)
	if err != nil {
		return nil, err
	}
	ctx = x.WithDeposit(e.auth.WithCaller(ctx, r.Caller), r.Deposit)
	tx := &MsgTx{Msg: r.Msg}

	check := e.store.CacheWrap()
	_, err = e.handler.Check(ctx, info, check, tx)
	check.Discard()
	if err != nil {
		return nil, err
	}

	cache := e.store.CacheWrap()
	defer cache.Discard()
	res, err := e.handler.Deliver(ctx, info, cache, tx)
	if err != nil {
		return nil, err
	}
	if err := cache.Write(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return res, nil
}

func (e *Engine) query(ctx context.Context, path string, data []byte) (interface{}, error) {
	h := e.queries.Handler(path)
	if h == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "no query handler for %q", path)
	}
	info, err := e.blockInfo(ctx, true)
	if err != nil {
		return nil, err
	}
	return h.Query(info, e.store, data)
}

// dispatch hands over every promise that was not dispatched yet to the
// worker pool.
func (e *Engine) dispatch(ctx context.Context, pool pond.Pool) {
	pending, err := promise.ListPending(e.store)
	if err != nil {
		e.logger.Error("cannot list pending promises", "err", err)
		return
	}
	for _, p := range pending {
		if p.Dispatched {
			continue
		}
		if err := e.markDispatched(p.ID); err != nil {
			e.logger.Error("cannot dispatch promise", "promise", p.ID, "err", err)
			continue
		}
		e.order = append(e.order, p.ID)
		promisesInFlight.Inc()

		id, calls := p.ID, p.Calls
		pool.Submit(func() {
			start := time.Now()
			res := promise.Execute(ctx, e.exec, calls)
			callDuration.Observe(time.Since(start).Seconds())
			select {
			case e.results <- outcome{id: id, result: res}:
			case <-ctx.Done():
			}
		})
	}
}

func (e *Engine) markDispatched(id uint64) error {
	cache := e.store.CacheWrap()
	defer cache.Discard()
	if err := promise.MarkDispatched(cache, id); err != nil {
		return err
	}
	return cache.Write()
}

// resolveReady resolves executed promises in the order they were
// dispatched.
func (e *Engine) resolveReady(ctx context.Context) {
	for len(e.order) > 0 {
		id := e.order[0]
		result, ok := e.ready[id]
		if !ok {
			return
		}
		delete(e.ready, id)
		e.order = e.order[1:]
		promisesInFlight.Dec()
		e.resolve(ctx, id, result)
	}
}

func (e *Engine) resolve(ctx context.Context, id uint64, result promise.Result) {
	info, err := e.blockInfo(ctx, true)
	if err != nil {
		e.logger.Error("cannot resolve promise", "promise", id, "err", err)
		return
	}
	res, _, err := e.resolver.Resolve(ctx, info, e.store, id, result)
	if err != nil {
		e.logger.Error("cannot resolve promise", "promise", id, "err", err)
		return
	}
	resolutionsTotal.WithLabelValues(res.Callback, strconv.FormatBool(result.Success)).Inc()
	if !result.Success {
		e.logger.Info("promise failed", "promise", id, "err", result.Error, "applied", res.Applied)
	}
}

// abandon resolves as failed every promise that was dispatched by a
// previous run. Their outcome is unknown.
func (e *Engine) abandon(ctx context.Context) error {
	pending, err := promise.ListPending(e.store)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if !p.Dispatched {
			continue
		}
		info, err := e.blockInfo(ctx, false)
		if err != nil {
			return err
		}
		res, _, err := e.resolver.Resolve(ctx, info, e.store, p.ID, promise.Failure(errors.Wrap(errors.ErrRemote, "abandoned")))
		if err != nil {
			return errors.Wrapf(err, "promise %d", p.ID)
		}
		abandonedTotal.Inc()
		e.logger.Error("promise abandoned", "promise", p.ID, "callback", res.Callback, "applied", res.Applied)
	}
	return nil
}
