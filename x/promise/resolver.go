package promise

import (
	"context"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/orm"
)

// Decoder builds a message from its path and JSON representation.
type Decoder interface {
	DecodeMsg(path string, raw []byte) (harvest.Msg, error)
}

// Resolver completes promises by delivering their callback messages.
type Resolver struct {
	hn      harvest.Handler
	dec     Decoder
	outbox  orm.ModelBucket
	results orm.ModelBucket
}

// NewResolver returns a resolver that is using given handler to process
// callback messages decoded with dec.
func NewResolver(h harvest.Handler, dec Decoder) *Resolver {
	return &Resolver{
		hn:      h,
		dec:     dec,
		outbox:  NewOutboxBucket(),
		results: NewResolutionBucket(),
	}
}

// Resolve removes the promise from the outbox and delivers its callback
// with given result.
//
// Changes done by a failing callback are discarded, but the promise is
// removed and its resolution stored regardless. A returned error means
// that nothing was written.
func (r *Resolver) Resolve(ctx context.Context, info harvest.BlockInfo, db harvest.CacheableKVStore, id uint64, result Result) (*Resolution, *harvest.DeliverResult, error) {
	key := orm.EncodeSequence(id)

	cache := db.CacheWrap()
	defer cache.Discard()

	var p Promise
	if err := r.outbox.One(cache, key, &p); err != nil {
		return nil, nil, errors.Wrapf(err, "promise %d", id)
	}
	if err := r.outbox.Delete(cache, key); err != nil {
		return nil, nil, errors.Wrap(err, "cannot remove from outbox")
	}

	res := Resolution{
		Metadata:   &harvest.Metadata{Schema: 1},
		Calls:      p.Calls,
		Result:     result,
		ResolvedAt: info.UnixTime(),
	}

	var dres *harvest.DeliverResult
	if p.Callback != nil {
		res.Callback = p.Callback.Path
		dres = r.deliver(ctx, info, cache, id, p.Callback, result, &res)
	}

	if err := r.results.Put(cache, key, &res); err != nil {
		return nil, nil, errors.Wrap(err, "cannot store resolution")
	}
	if err := cache.Write(); err != nil {
		return nil, nil, errors.Wrap(err, "cannot write cache")
	}
	return &res, dres, nil
}

func (r *Resolver) deliver(ctx context.Context, info harvest.BlockInfo, db harvest.CacheableKVStore, id uint64, cb *Callback, result Result, res *Resolution) *harvest.DeliverResult {
	info = info.WithLogInfo("promise", id, "callback", cb.Path)

	msg, err := r.dec.DecodeMsg(cb.Path, cb.Msg)
	if err != nil {
		res.Info = "cannot decode callback: " + err.Error()
		info.Logger().Error("callback dropped", "err", err)
		return nil
	}

	// The callback runs in its own cache so that a failure does not
	// prevent the promise removal.
	cache := db.CacheWrap()
	dres, err := r.hn.Deliver(withResult(ctx, id, result), info, cache, &callbackTx{msg: msg})
	if err != nil {
		cache.Discard()
		res.Info = err.Error()
		info.Logger().Error("callback failed", "err", err)
		return nil
	}
	if err := cache.Write(); err != nil {
		res.Info = "cannot write callback changes: " + err.Error()
		info.Logger().Error("callback dropped", "err", err)
		return nil
	}
	res.Applied = true
	if dres != nil {
		res.Info = dres.Outcome
	}
	return dres
}

// LoadResolution returns the stored resolution of given promise.
func LoadResolution(db harvest.ReadOnlyKVStore, id uint64) (*Resolution, error) {
	var res Resolution
	if err := NewResolutionBucket().One(db, orm.EncodeSequence(id), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// callbackTx is a harvest.Tx implementation created for delivering callback
// messages. It is a thin wrapper over the message.
type callbackTx struct {
	msg harvest.Msg
}

var _ harvest.Tx = (*callbackTx)(nil)

func (tx *callbackTx) GetMsg() (harvest.Msg, error) {
	return tx.msg, nil
}
