package promise

import (
	"encoding/json"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/orm"
)

// Promise is a list of remote calls issued together and the callback that
// receives their outcome.
type Promise struct {
	Metadata *harvest.Metadata `json:"metadata"`
	Calls    []harvest.Call    `json:"calls"`
	// Callback is the serialized continuation message. Empty for fire and
	// forget calls.
	Callback *Callback        `json:"callback,omitempty"`
	IssuedAt harvest.UnixTime `json:"issued_at"`
	// Dispatched is set once the calls were handed over for execution.
	Dispatched bool `json:"dispatched"`
}

// Callback is a message serialized together with its path, so that it can
// be decoded and routed after the promise is resolved.
type Callback struct {
	Path string          `json:"path"`
	Msg  json.RawMessage `json:"msg"`
}

var _ orm.Model = (*Promise)(nil)

func (p *Promise) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", p.Metadata.Validate())
	if len(p.Calls) == 0 {
		errs = errors.AppendField(errs, "Calls", errors.ErrEmpty)
	}
	for _, c := range p.Calls {
		errs = errors.AppendField(errs, "Calls", c.Validate())
	}
	if p.Callback != nil {
		if p.Callback.Path == "" {
			errs = errors.AppendField(errs, "Callback", errors.ErrEmpty)
		}
		if !json.Valid(p.Callback.Msg) {
			errs = errors.AppendField(errs, "Callback", errors.Wrap(errors.ErrInput, "invalid message"))
		}
	}
	if err := p.IssuedAt.Validate(); err != nil {
		errs = errors.AppendField(errs, "IssuedAt", err)
	}
	return errs
}

// Resolution is stored for every resolved promise. It records how the calls
// ended and whether the callback was applied.
type Resolution struct {
	Metadata   *harvest.Metadata `json:"metadata"`
	Calls      []harvest.Call    `json:"calls"`
	Result     Result            `json:"result"`
	Callback   string            `json:"callback,omitempty"`
	Applied    bool              `json:"applied"`
	Info       string            `json:"info,omitempty"`
	ResolvedAt harvest.UnixTime  `json:"resolved_at"`
}

var _ orm.Model = (*Resolution)(nil)

func (r *Resolution) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", r.Metadata.Validate())
	if err := r.ResolvedAt.Validate(); err != nil {
		errs = errors.AppendField(errs, "ResolvedAt", err)
	}
	return errs
}

// NewOutboxBucket returns the bucket holding all pending promises. Keys are
// 8 byte big-endian sequence values.
func NewOutboxBucket() orm.ModelBucket {
	return orm.NewModelBucket("promise")
}

// NewResolutionBucket returns the bucket holding the resolution of every
// promise, under the same key as the promise had.
func NewResolutionBucket() orm.ModelBucket {
	return orm.NewModelBucket("resolved")
}

var outboxSeq = orm.NewSequence("promise", "id")
