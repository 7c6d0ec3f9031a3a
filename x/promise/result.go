package promise

import (
	"context"
	"encoding/json"

	"github.com/iov-one/harvest/errors"
)

// Result is the outcome of the calls of a promise. On success Value holds
// the JSON returned by the last call.
type Result struct {
	Success bool            `json:"success"`
	Value   json.RawMessage `json:"value,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Success returns a successful result carrying given raw value.
func Success(value json.RawMessage) Result {
	return Result{Success: true, Value: value}
}

// Failure returns a failed result described by given error.
func Failure(err error) Result {
	if err == nil {
		err = errors.ErrRemote
	}
	return Result{Error: err.Error()}
}

// Err returns nil for a successful result and an ErrRemote otherwise.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return errors.ErrRemote
	}
	return errors.Wrap(errors.ErrRemote, r.Error)
}

// Decode unmarshals the value of a successful result into dest.
func (r Result) Decode(dest interface{}) error {
	if err := r.Err(); err != nil {
		return err
	}
	if len(r.Value) == 0 {
		return errors.Wrap(errors.ErrRemote, "empty result value")
	}
	if err := json.Unmarshal(r.Value, dest); err != nil {
		return errors.Wrapf(errors.ErrRemote, "cannot decode result: %s", err)
	}
	return nil
}

type ctxKey int

const (
	ctxKeyResolution ctxKey = iota
)

type resolution struct {
	id     uint64
	result Result
}

// withResult returns a context declaring that given promise is being
// resolved with given result.
func withResult(ctx context.Context, id uint64, r Result) context.Context {
	return context.WithValue(ctx, ctxKeyResolution, resolution{id: id, result: r})
}

// ResultFrom returns the result of the promise that is being resolved, if
// any.
func ResultFrom(ctx context.Context) (Result, bool) {
	res, ok := ctx.Value(ctxKeyResolution).(resolution)
	return res.result, ok
}

// ResolvingID returns the identifier of the promise that is being
// resolved, if any.
func ResolvingID(ctx context.Context) (uint64, bool) {
	res, ok := ctx.Value(ctxKeyResolution).(resolution)
	return res.id, ok
}

// RequireResult returns the result of the promise that is being resolved or
// ErrUnauthorized if the current operation is not a promise callback.
func RequireResult(ctx context.Context) (Result, error) {
	res, ok := ResultFrom(ctx)
	if !ok {
		return Result{}, errors.Wrap(errors.ErrUnauthorized, "callback can be called only by promise resolution")
	}
	return res, nil
}
