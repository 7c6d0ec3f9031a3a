package promise

import (
	"context"
	"encoding/json"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/orm"
)

// Issue stores a new promise in the outbox and returns its identifier.
// Calls are executed in the given order. Callback is delivered once all of
// them succeeded or the first one failed. Use a nil callback for fire and
// forget calls.
func Issue(db harvest.KVStore, info harvest.BlockInfo, callback harvest.Msg, calls ...harvest.Call) (uint64, error) {
	p := Promise{
		Metadata: &harvest.Metadata{Schema: 1},
		Calls:    calls,
		IssuedAt: info.UnixTime(),
	}
	if callback != nil {
		raw, err := json.Marshal(callback)
		if err != nil {
			return 0, errors.Wrapf(errors.ErrMsg, "cannot serialize %q callback: %s", callback.Path(), err)
		}
		p.Callback = &Callback{Path: callback.Path(), Msg: raw}
	}

	id, err := outboxSeq.NextInt(db)
	if err != nil {
		return 0, errors.Wrap(err, "cannot acquire promise id")
	}
	if err := NewOutboxBucket().Put(db, orm.EncodeSequence(id), &p); err != nil {
		return 0, errors.Wrap(err, "cannot store promise")
	}
	info.Logger().Debug("promise issued", "id", id, "calls", len(calls), "callback", callbackPath(p.Callback))
	return id, nil
}

func callbackPath(c *Callback) string {
	if c == nil {
		return ""
	}
	return c.Path
}

// Pending is a promise waiting in the outbox.
type Pending struct {
	ID uint64
	Promise
}

// ListPending returns all promises from the outbox, oldest first.
func ListPending(db harvest.ReadOnlyKVStore) ([]Pending, error) {
	it, err := NewOutboxBucket().Range(db, nil, nil)
	if err != nil {
		return nil, err
	}
	defer it.Release()

	var res []Pending
	for {
		var p Promise
		key, err := it.LoadNext(&p)
		if errors.ErrIteratorDone.Is(err) {
			return res, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "cannot load promise")
		}
		id, err := orm.DecodeSequence(key)
		if err != nil {
			return nil, err
		}
		res = append(res, Pending{ID: id, Promise: p})
	}
}

// IsPending returns true if the promise is still waiting in the outbox.
func IsPending(db harvest.ReadOnlyKVStore, id uint64) (bool, error) {
	return NewOutboxBucket().Has(db, orm.EncodeSequence(id))
}

// MarkDispatched flags the promise as handed over for execution. It is an
// error to dispatch a promise twice.
func MarkDispatched(db harvest.KVStore, id uint64) error {
	b := NewOutboxBucket()
	key := orm.EncodeSequence(id)
	var p Promise
	if err := b.One(db, key, &p); err != nil {
		return err
	}
	if p.Dispatched {
		return errors.Wrapf(errors.ErrState, "promise %d already dispatched", id)
	}
	p.Dispatched = true
	return b.Put(db, key, &p)
}

// Execute runs given calls in order and returns the result of the last one.
// Execution stops at the first failed call.
func Execute(ctx context.Context, exec harvest.Executor, calls []harvest.Call) Result {
	var last json.RawMessage
	for _, c := range calls {
		raw, err := exec.Execute(ctx, c)
		if err != nil {
			return Failure(errors.Wrapf(err, "call %s", c))
		}
		last = raw
	}
	return Success(last)
}
