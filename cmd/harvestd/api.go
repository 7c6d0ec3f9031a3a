package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/app"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x/ledger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendermint/tendermint/libs/log"
)

// maxBodySize limits the size of a submitted message.
const maxBodySize = 1 << 20

// requestTimeout limits a single submission or query.
const requestTimeout = 30 * time.Second

// Engine is the part of the engine the API is serving.
type Engine interface {
	Submit(ctx context.Context, r app.Request) (*harvest.DeliverResult, error)
	Query(ctx context.Context, path string, data []byte) (interface{}, error)
}

// MsgDecoder builds a message from its path and JSON body.
type MsgDecoder interface {
	DecodeMsg(path string, raw []byte) (harvest.Msg, error)
}

// API exposes the engine over HTTP.
type API struct {
	engine Engine
	dec    MsgDecoder
	tokens map[string]harvest.AccountID
	logger log.Logger
	debug  bool
}

// NewAPI returns the HTTP handler of the daemon. Tokens map bearer tokens
// to the caller identity. In debug mode error responses carry the full
// error with its stack trace.
func NewAPI(e Engine, dec MsgDecoder, tokens map[string]harvest.AccountID, logger log.Logger, debug bool) http.Handler {
	a := &API{engine: e, dec: dec, tokens: tokens, logger: logger, debug: debug}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/tx/*", a.handleTx)
	r.Get("/info", a.handleQuery("/info"))
	r.Get("/env", a.handleQuery("/env"))
	r.Get("/pending", a.handlePending)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type txResponse struct {
	Outcome string `json:"outcome"`
	Log     string `json:"log,omitempty"`
	Data    string `json:"data,omitempty"`
}

type errorResponse struct {
	Code  uint32 `json:"code"`
	Error string `json:"error"`
}

func (a *API) handleTx(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	caller, err := a.caller(r)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	deposit, err := depositOf(r)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		a.writeErr(w, errors.Wrap(errors.ErrInput, err.Error()))
		return
	}
	msg, err := a.dec.DecodeMsg(path, body)
	if err != nil {
		a.writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	res, err := a.engine.Submit(ctx, app.Request{Msg: msg, Caller: caller, Deposit: deposit})
	if err != nil {
		a.logger.Debug("submission rejected", "path", path, "caller", caller, "err", err)
		a.writeErr(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, txResponse{
		Outcome: res.Outcome,
		Log:     res.Log,
		Data:    string(res.Data),
	})
}

// caller returns the account of the bearer token. A request without a
// token is anonymous.
func (a *API) caller(r *http.Request) (harvest.AccountID, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", nil
	}
	token := strings.TrimPrefix(h, "Bearer ")
	if token == h {
		return "", errors.Wrap(errors.ErrUnauthorized, "bearer token expected")
	}
	id, ok := a.tokens[token]
	if !ok {
		return "", errors.Wrap(errors.ErrUnauthorized, "unknown token")
	}
	return id, nil
}

func depositOf(r *http.Request) (coin.Amount, error) {
	v := r.Header.Get("X-Deposit")
	if v == "" {
		return coin.Amount{}, nil
	}
	amount, err := coin.ParseAmount(v)
	if err != nil {
		return coin.Amount{}, errors.Wrap(err, "X-Deposit")
	}
	return amount, nil
}

func (a *API) handleQuery(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.query(w, r, path, nil)
	}
}

func (a *API) handlePending(w http.ResponseWriter, r *http.Request) {
	var q ledger.PageQuery
	for name, dest := range map[string]*uint64{"from_index": &q.FromIndex, "limit": &q.Limit} {
		v := r.URL.Query().Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			a.writeErr(w, errors.Wrapf(errors.ErrInput, "%s: %s", name, err))
			return
		}
		*dest = n
	}
	data, err := json.Marshal(q)
	if err != nil {
		a.writeErr(w, errors.Wrap(errors.ErrInput, err.Error()))
		return
	}
	a.query(w, r, "/pending", data)
}

func (a *API) query(w http.ResponseWriter, r *http.Request, path string, data []byte) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	res, err := a.engine.Query(ctx, path, data)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *API) writeErr(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "err", err)
	}
	code, msg := errors.Info(err, a.debug)
	a.writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("cannot write response", "err", err)
	}
}
