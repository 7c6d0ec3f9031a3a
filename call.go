package harvest

import (
	"context"
	"encoding/json"

	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
)

// Action is the kind of a remote call.
type Action string

const (
	// ActionFunctionCall invokes a method of a remote contract.
	ActionFunctionCall Action = "function_call"
	// ActionTransfer sends the attached deposit to the receiver.
	ActionTransfer Action = "transfer"
	// ActionViewAccount reads the liquid balance of the receiver. The
	// result is {"amount": "<decimal>"}.
	ActionViewAccount Action = "view_account"
)

// Call is a single request toward a remote service. Calls are never
// executed synchronously. They are persisted together with the state change
// that issued them and their result is delivered later.
type Call struct {
	Receiver AccountID       `json:"receiver_id"`
	Action   Action          `json:"action"`
	Method   string          `json:"method_name,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
	Deposit  coin.Amount     `json:"deposit"`
}

// FunctionCall returns a call of the given method. Arguments are JSON
// serialized, nil means no arguments.
func FunctionCall(receiver AccountID, method string, args interface{}, deposit coin.Amount) (Call, error) {
	c := Call{
		Receiver: receiver,
		Action:   ActionFunctionCall,
		Method:   method,
		Deposit:  deposit,
	}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return c, errors.Wrap(errors.ErrInput, err.Error())
		}
		c.Args = raw
	}
	return c, c.Validate()
}

// Transfer returns a call that moves amount to the receiver.
func Transfer(receiver AccountID, amount coin.Amount) Call {
	return Call{
		Receiver: receiver,
		Action:   ActionTransfer,
		Deposit:  amount,
	}
}

// ViewAccount returns a call reading the liquid balance of the account.
func ViewAccount(id AccountID) Call {
	return Call{
		Receiver: id,
		Action:   ActionViewAccount,
	}
}

// Validate returns an error if this call cannot be executed.
func (c Call) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Receiver", c.Receiver.Validate())
	switch c.Action {
	case ActionFunctionCall:
		if c.Method == "" {
			errs = errors.AppendField(errs, "Method", errors.ErrEmpty)
		}
	case ActionTransfer:
		if c.Deposit.IsZero() {
			errs = errors.AppendField(errs, "Deposit", errors.ErrAmount)
		}
	case ActionViewAccount:
		if !c.Deposit.IsZero() {
			errs = errors.AppendField(errs, "Deposit", errors.Wrap(errors.ErrAmount, "read only"))
		}
	default:
		errs = errors.AppendField(errs, "Action", errors.Wrapf(errors.ErrInput, "unknown action %q", c.Action))
	}
	return errs
}

// String returns a short human readable representation.
func (c Call) String() string {
	switch c.Action {
	case ActionTransfer:
		return "transfer " + c.Deposit.String() + " to " + string(c.Receiver)
	case ActionViewAccount:
		return "view " + string(c.Receiver)
	}
	return string(c.Receiver) + "." + c.Method
}

// Executor runs remote calls. A returned error means the call failed on the
// remote side or never reached it.
type Executor interface {
	Execute(ctx context.Context, c Call) (json.RawMessage, error)
}
