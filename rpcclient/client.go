package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
)

const (
	// DefaultTimeout limits a single request to the relay.
	DefaultTimeout = 30 * time.Second
	// DefaultStatusRetry is the total time spent retrying a status read.
	DefaultStatusRetry = 15 * time.Second
)

// Client is a JSON-RPC client of the relay. It executes calls and serves as
// the chain head of the engine.
type Client struct {
	url         string
	http        *http.Client
	statusRetry time.Duration
	lastID      uint64
}

var (
	_ harvest.Executor  = (*Client)(nil)
	_ harvest.ChainHead = (*Client)(nil)
)

// NewClient returns a client of the relay listening at given URL. Zero
// timeout means DefaultTimeout.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:         url,
		http:        &http.Client{Timeout: timeout},
		statusRetry: DefaultStatusRetry,
	}
}

// WithStatusRetry returns a copy of the client that retries status reads
// for at most d. Zero disables retries.
func (c *Client) WithStatusRetry(d time.Duration) *Client {
	cp := *c
	cp.statusRetry = d
	return &cp
}

type request struct {
	Version string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type response struct {
	Version string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	if len(e.Data) != 0 {
		return fmt.Sprintf("%d %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// Execute runs the call through the relay and returns its raw result.
func (c *Client) Execute(ctx context.Context, call harvest.Call) (json.RawMessage, error) {
	if err := call.Validate(); err != nil {
		return nil, errors.Wrap(err, "call")
	}
	res, rerr, err := c.do(ctx, "contract_call", call)
	if err != nil {
		return nil, errors.Wrapf(err, "contract call %s", call)
	}
	if rerr != nil {
		return nil, errors.Wrapf(errors.ErrRemote, "contract call %s: %s", call, rerr)
	}
	return res, nil
}

type status struct {
	Time  time.Time `json:"time"`
	Epoch uint64    `json:"epoch"`
}

// Head returns the current time and epoch of the chain. Transport failures
// are retried with an exponential backoff.
func (c *Client) Head(ctx context.Context) (harvest.Head, error) {
	var st status
	read := func() error {
		raw, rerr, err := c.do(ctx, "status", nil)
		if err != nil {
			return err
		}
		if rerr != nil {
			return backoff.Permanent(errors.Wrap(errors.ErrRemote, rerr.Error()))
		}
		if err := json.Unmarshal(raw, &st); err != nil {
			return backoff.Permanent(errors.Wrapf(errors.ErrRemote, "cannot decode status: %s", err))
		}
		return nil
	}

	var err error
	if c.statusRetry <= 0 {
		err = read()
	} else {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 100 * time.Millisecond
		b.MaxElapsedTime = c.statusRetry
		err = backoff.Retry(read, backoff.WithContext(b, ctx))
	}
	if err != nil {
		return harvest.Head{}, errors.Wrap(unwrapPermanent(err), "status")
	}
	if st.Time.IsZero() {
		return harvest.Head{}, errors.Wrap(errors.ErrRemote, "status without time")
	}
	return harvest.Head{Time: st.Time, Epoch: st.Epoch}, nil
}

func unwrapPermanent(err error) error {
	if p, ok := err.(*backoff.PermanentError); ok {
		return p.Err
	}
	return err
}

// do sends a single request. A failure reported by the relay is returned
// as rpcError, any other failure as err.
func (c *Client) do(ctx context.Context, method string, params interface{}) (json.RawMessage, *rpcError, error) {
	id := atomic.AddUint64(&c.lastID, 1)
	body, err := json.Marshal(request{Version: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrRemote, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<22))
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrRemote, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, errors.Wrapf(errors.ErrRemote, "relay responded with %d", resp.StatusCode)
	}

	var res response
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, nil, errors.Wrapf(errors.ErrRemote, "cannot decode response: %s", err)
	}
	if res.ID != id {
		return nil, nil, errors.Wrapf(errors.ErrRemote, "response id %d, want %d", res.ID, id)
	}
	if res.Error != nil {
		return nil, res.Error, nil
	}
	return res.Result, nil, nil
}
