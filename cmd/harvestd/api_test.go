package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/app"
	harvestd "github.com/iov-one/harvest/cmd/harvestd/app"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/harvesttest/assert"
	harvester "github.com/iov-one/harvest/x/harvest"
	"github.com/iov-one/harvest/x/ledger"
	"github.com/tendermint/tendermint/libs/log"
)

// engineMock records the last request and returns configured results.
type engineMock struct {
	req       app.Request
	res       *harvest.DeliverResult
	err       error
	queryPath string
	queryData []byte
	queryRes  interface{}
}

func (e *engineMock) Submit(ctx context.Context, r app.Request) (*harvest.DeliverResult, error) {
	e.req = r
	return e.res, e.err
}

func (e *engineMock) Query(ctx context.Context, path string, data []byte) (interface{}, error) {
	e.queryPath = path
	e.queryData = data
	return e.queryRes, e.err
}

func newTestAPI(e *engineMock) http.Handler {
	tokens := map[string]harvest.AccountID{"s3cret": "owner.near"}
	return NewAPI(e, harvestd.Router(harvestd.Authenticator()), tokens, log.NewNopLogger(), false)
}

func serve(h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestSubmitMessage(t *testing.T) {
	cases := map[string]struct {
		Target     string
		Body       string
		Header     map[string]string
		EngineRes  *harvest.DeliverResult
		EngineErr  error
		WantStatus int
		WantCaller harvest.AccountID
		WantMsg    harvest.Msg
		WantBody   string
	}{
		"harvest as owner": {
			Target:     "/tx/harvest/run",
			Header:     map[string]string{"Authorization": "Bearer s3cret"},
			EngineRes:  &harvest.DeliverResult{Outcome: "pinging"},
			WantStatus: http.StatusOK,
			WantCaller: "owner.near",
			WantMsg:    &harvester.HarvestMsg{},
			WantBody:   `{"outcome":"pinging"}`,
		},
		"release data is a decimal amount": {
			Target:     "/tx/harvest/release",
			Header:     map[string]string{"Authorization": "Bearer s3cret"},
			EngineRes:  &harvest.DeliverResult{Outcome: "distributed", Data: []byte("1000")},
			WantStatus: http.StatusOK,
			WantCaller: "owner.near",
			WantMsg:    &harvester.ReleaseMsg{},
			WantBody:   `{"outcome":"distributed","data":"1000"}`,
		},
		"donation as owner": {
			Target:     "/tx/harvest/donate",
			Header:     map[string]string{"Authorization": "Bearer s3cret", "X-Deposit": "250"},
			EngineRes:  &harvest.DeliverResult{Outcome: "verifying"},
			WantStatus: http.StatusOK,
			WantCaller: "owner.near",
			WantMsg:    &harvester.DonateMsg{},
			WantBody:   `{"outcome":"verifying"}`,
		},
		"message body is decoded": {
			Target:     "/tx/harvest/set_farm_duration",
			Body:       `{"duration": "1h"}`,
			Header:     map[string]string{"Authorization": "Bearer s3cret"},
			EngineRes:  &harvest.DeliverResult{Outcome: "updated"},
			WantStatus: http.StatusOK,
			WantCaller: "owner.near",
			WantMsg:    &harvester.SetFarmDurationMsg{Duration: harvest.UnixDuration(3600)},
			WantBody:   `{"outcome":"updated"}`,
		},
		"unknown token": {
			Target:     "/tx/harvest/run",
			Header:     map[string]string{"Authorization": "Bearer guess"},
			WantStatus: http.StatusUnauthorized,
		},
		"malformed token": {
			Target:     "/tx/harvest/run",
			Header:     map[string]string{"Authorization": "s3cret"},
			WantStatus: http.StatusUnauthorized,
		},
		"invalid deposit": {
			Target:     "/tx/harvest/donate",
			Header:     map[string]string{"X-Deposit": "-1"},
			WantStatus: http.StatusBadRequest,
		},
		"unknown path": {
			Target:     "/tx/harvest/steal",
			WantStatus: http.StatusNotFound,
		},
		"malformed body": {
			Target:     "/tx/harvest/set_farm_duration",
			Body:       `{"duration": [1]}`,
			WantStatus: http.StatusBadRequest,
		},
		"guard rejection": {
			Target:     "/tx/harvest/run",
			EngineErr:  errors.Wrap(errors.ErrTooEarly, "guard"),
			WantStatus: http.StatusTooManyRequests,
			WantMsg:    &harvester.HarvestMsg{},
			WantBody:   `{"code":31,"error":"guard: too early"}`,
		},
		"internal errors are redacted": {
			Target:     "/tx/harvest/run",
			EngineErr:  errors.Wrap(errors.ErrPanic, "nil map"),
			WantStatus: http.StatusInternalServerError,
			WantMsg:    &harvester.HarvestMsg{},
			WantBody:   `{"code":1,"error":"internal error"}`,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			e := &engineMock{res: tc.EngineRes, err: tc.EngineErr}
			w := serve(newTestAPI(e), http.MethodPost, tc.Target, tc.Body, tc.Header)

			assert.Equal(t, tc.WantStatus, w.Code)
			if tc.WantBody != "" {
				assert.Equal(t, tc.WantBody, strings.TrimSpace(w.Body.String()))
			}
			if tc.WantMsg != nil {
				assert.Equal(t, tc.WantMsg, e.req.Msg)
				assert.Equal(t, tc.WantCaller, e.req.Caller)
			}
		})
	}
}

func TestSubmitDeposit(t *testing.T) {
	e := &engineMock{res: &harvest.DeliverResult{Outcome: "verifying"}}
	w := serve(newTestAPI(e), http.MethodPost, "/tx/harvest/donate", "", map[string]string{"X-Deposit": "340282366920938463463374607431768211455"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, coin.MaxAmount(), e.req.Deposit)
}

func TestQueries(t *testing.T) {
	e := &engineMock{queryRes: []ledger.PeriodAmount{}}
	h := newTestAPI(e)

	w := serve(h, http.MethodGet, "/pending?from_index=3&limit=10", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/pending", e.queryPath)
	var q ledger.PageQuery
	assert.Nil(t, json.Unmarshal(e.queryData, &q))
	assert.Equal(t, ledger.PageQuery{FromIndex: 3, Limit: 10}, q)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	w = serve(h, http.MethodGet, "/pending?limit=ten", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	e.queryRes = &harvester.Env{Epoch: 17}
	w = serve(h, http.MethodGet, "/env", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/env", e.queryPath)

	w = serve(h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
