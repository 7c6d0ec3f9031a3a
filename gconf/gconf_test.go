package gconf

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/harvesttest"
	"github.com/iov-one/harvest/harvesttest/assert"
	"github.com/iov-one/harvest/store"
)

func TestSaveLoad(t *testing.T) {
	cases := map[string]struct {
		Conf        *myconfig
		WantSaveErr *errors.Error
	}{
		"all fields": {
			Conf: &myconfig{Owner: "owner.near", Num: 852151421, Str: "foobar", Amount: coin.MustParseAmount("340282366920938463463374607431768211455")},
		},
		"zero amount": {
			Conf: &myconfig{Owner: "owner.near"},
		},
		"invalid owner cannot be saved": {
			Conf:        &myconfig{Owner: "Not Valid"},
			WantSaveErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()

			if err := Save(db, "mypkg", tc.Conf); !tc.WantSaveErr.Is(err) {
				t.Fatalf("unexpected save error: %+v", err)
			}
			if tc.WantSaveErr != nil {
				return
			}

			var got myconfig
			assert.Nil(t, Load(db, "mypkg", &got))
			assert.Equal(t, tc.Conf, &got)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	var c myconfig
	if err := Load(store.MemStore(), "mypkg", &c); !errors.ErrNotFound.Is(err) {
		t.Fatalf("unexpected error: %+v", err)
	}
}

func TestInitConfig(t *testing.T) {
	genesis := `{
		"conf": {
			"mypkg": {"owner": "owner.near", "num": 7, "str": "abc", "amount": "1000"}
		}
	}`
	var opts harvest.Options
	assert.Nil(t, json.Unmarshal([]byte(genesis), &opts))

	db := store.MemStore()
	info := harvesttest.BlockInfo(t, harvesttest.Epoch0, 1)
	init := Initializer{Pkg: "mypkg", New: func() Validater { return &myconfig{} }}
	assert.Nil(t, init.FromGenesis(opts, info, db))

	var got myconfig
	assert.Nil(t, Load(db, "mypkg", &got))
	assert.Equal(t, myconfig{Owner: "owner.near", Num: 7, Str: "abc", Amount: coin.NewAmount(1000)}, got)

	missing := Initializer{Pkg: "otherpkg", New: func() Validater { return &myconfig{} }}
	if err := missing.FromGenesis(opts, info, db); !errors.ErrNotFound.Is(err) {
		t.Fatalf("unexpected error: %+v", err)
	}
}

type myconfig struct {
	Owner  harvest.AccountID `json:"owner"`
	Num    int64             `json:"num"`
	Str    string            `json:"str"`
	Amount coin.Amount       `json:"amount"`
}

func (c *myconfig) GetOwner() harvest.AccountID { return c.Owner }

func (c *myconfig) Validate() error {
	if err := c.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if c.Num < 0 {
		return errors.Wrap(errors.ErrInput, "negative num")
	}
	return nil
}

type myconfigMsg struct {
	Patch *myconfig
}

var _ harvest.Msg = (*myconfigMsg)(nil)

func (msg *myconfigMsg) Path() string { return "mypkg/update_configuration" }

func (msg *myconfigMsg) Validate() error {
	if msg.Patch == nil {
		return errors.Wrap(errors.ErrEmpty, "patch")
	}
	if msg.Patch.Num < 0 {
		return errors.Wrap(errors.ErrInput, "negative num")
	}
	return nil
}
