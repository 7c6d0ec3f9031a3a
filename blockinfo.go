package harvest

import (
	"context"
	"time"

	"github.com/iov-one/harvest/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// DefaultLogger is used for all block information that did not set
// anything itself.
var DefaultLogger = log.NewNopLogger()

// Head describes the latest state of the chain the harvester operates on.
type Head struct {
	Time  time.Time
	Epoch uint64
}

// ChainHead is implemented by anything that can tell the current chain time
// and epoch.
type ChainHead interface {
	Head(ctx context.Context) (Head, error)
}

// BlockInfo carries all framework-defined information down the handler
// stack: the time and epoch the operation is executed at, the account of
// this harvester and the logger.
type BlockInfo struct {
	head   Head
	self   AccountID
	logger log.Logger
}

// NewBlockInfo creates a BlockInfo struct with current context of where it
// is being executed.
func NewBlockInfo(head Head, self AccountID, logger log.Logger) (BlockInfo, error) {
	if err := self.Validate(); err != nil {
		return BlockInfo{}, errors.Wrap(err, "self")
	}
	if head.Time.IsZero() {
		return BlockInfo{}, errors.Wrap(errors.ErrInput, "zero time")
	}
	if logger == nil {
		logger = DefaultLogger
	}
	return BlockInfo{
		head:   head,
		self:   self,
		logger: logger,
	}, nil
}

func (b BlockInfo) BlockTime() time.Time {
	return b.head.Time
}

func (b BlockInfo) UnixTime() UnixTime {
	return AsUnixTime(b.head.Time)
}

// Epoch returns the protocol epoch of the external chain.
func (b BlockInfo) Epoch() uint64 {
	return b.head.Epoch
}

// Self returns the account identity of this harvester instance.
func (b BlockInfo) Self() AccountID {
	return b.self
}

func (b BlockInfo) Logger() log.Logger {
	return b.logger
}

// WithLogInfo accepts keyvalue pairs, and returns another
// block info like this, after passing all the keyvals to the
// Logger
func (b BlockInfo) WithLogInfo(keyvals ...interface{}) BlockInfo {
	b.logger = b.logger.With(keyvals...)
	return b
}

// IsExpired returns true if given time is in the past as compared to the "now"
// as declared for the block. Expiration is inclusive, meaning that if current
// time is equal to the expiration time than this function returns true.
func (b BlockInfo) IsExpired(t UnixTime) bool {
	return t <= b.UnixTime()
}

// InTheFuture returns true if given time is in the future compared to the
// current time as declared in the block info. Not inclusive.
func (b BlockInfo) InTheFuture(t time.Time) bool {
	return t.After(b.BlockTime())
}
