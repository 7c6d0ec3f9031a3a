package app

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x/promise"
)

// isPath is the RegExp to ensure the routes make sense
var isPath = regexp.MustCompile(`^[a-z0-9_/]+$`).MatchString

// Router allows us to register many handlers with different paths and then
// direct each message to the proper handler.
//
// Minimal interface modeled after net/http.ServeMux
type Router struct {
	routes map[string]route
}

type route struct {
	handler harvest.Handler
	// msg is the type of the registered message, never a pointer.
	msg reflect.Type
}

var (
	_ harvest.Registry = (*Router)(nil)
	_ harvest.Handler  = (*Router)(nil)
	_ promise.Decoder  = (*Router)(nil)
)

// NewRouter returns a new empty router instance.
func NewRouter() *Router {
	return &Router{
		routes: make(map[string]route, 32),
	}
}

// Handle adds a new Handler for the path of given message. This function
// panics if a handler for the path is already registered.
func (r *Router) Handle(m harvest.Msg, h harvest.Handler) {
	path := m.Path()
	if !isPath(path) {
		panic(fmt.Sprintf("invalid path: %q", path))
	}
	if _, ok := r.routes[path]; ok {
		panic(fmt.Sprintf("re-registering route: %s", path))
	}
	t := reflect.TypeOf(m)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.routes[path] = route{handler: h, msg: t}
}

// Handler returns the registered Handler for this path. If no path is found,
// returns a notFound Handler. Never returns nil.
func (r *Router) Handler(path string) harvest.Handler {
	if rt, ok := r.routes[path]; ok {
		return rt.handler
	}
	return notFoundHandler(path)
}

// Paths returns all registered paths, sorted.
func (r *Router) Paths() []string {
	paths := make([]string, 0, len(r.routes))
	for p := range r.routes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// DecodeMsg returns a new instance of the message registered under given
// path, populated with the JSON serialized raw data.
func (r *Router) DecodeMsg(path string, raw []byte) (harvest.Msg, error) {
	rt, ok := r.routes[path]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "path %q", path)
	}
	ptr := reflect.New(rt.msg)
	if len(raw) != 0 {
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			return nil, errors.Wrapf(errors.ErrMsg, "%s: %s", path, err)
		}
	}
	msg, ok := ptr.Interface().(harvest.Msg)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T is not a message", ptr.Interface())
	}
	return msg, nil
}

// Check dispatches to the proper handler based on path
func (r *Router) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot load msg")
	}
	return r.Handler(msg.Path()).Check(ctx, info, db, tx)
}

// Deliver dispatches to the proper handler based on path
func (r *Router) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot load msg")
	}
	return r.Handler(msg.Path()).Deliver(ctx, info, db, tx)
}

// notFoundHandler always returns ErrNotFound error regardless of the
// arguments.
type notFoundHandler string

func (path notFoundHandler) Check(context.Context, harvest.BlockInfo, harvest.KVStore, harvest.Tx) (*harvest.CheckResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for %q", string(path))
}

func (path notFoundHandler) Deliver(context.Context, harvest.BlockInfo, harvest.KVStore, harvest.Tx) (*harvest.DeliverResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for %q", string(path))
}

// MsgTx is a transaction carrying a single message.
type MsgTx struct {
	Msg harvest.Msg
}

var _ harvest.Tx = (*MsgTx)(nil)

func (tx *MsgTx) GetMsg() (harvest.Msg, error) {
	if tx.Msg == nil {
		return nil, errors.Wrap(errors.ErrMsg, "no message")
	}
	return tx.Msg, nil
}
