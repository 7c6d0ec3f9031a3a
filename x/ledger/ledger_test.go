package ledger

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/harvesttest"
	"github.com/iov-one/harvest/harvesttest/assert"
	"github.com/iov-one/harvest/store"
)

func TestInsertCollect(t *testing.T) {
	db := store.MemStore()
	l := New()

	assert.Nil(t, l.Insert(db, 14, coin.NewAmount(100)))
	assert.Nil(t, l.Insert(db, 10, coin.NewAmount(5)))
	assert.Nil(t, l.Insert(db, 14, coin.NewAmount(20)))
	assert.Nil(t, l.Insert(db, 12, coin.NewAmount(0)))

	page, err := l.Page(db, 0, 0)
	assert.Nil(t, err)
	assert.Equal(t, []PeriodAmount{
		{Period: 10, Amount: coin.NewAmount(5)},
		{Period: 14, Amount: coin.NewAmount(120)},
	}, page)

	// Nothing due yet.
	total, due, err := l.Collect(db, 9)
	assert.Nil(t, err)
	assert.Equal(t, true, total.IsZero())
	assert.Equal(t, 0, len(due))

	total, due, err = l.Collect(db, 13)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(5), total)
	assert.Equal(t, []PeriodAmount{{Period: 10, Amount: coin.NewAmount(5)}}, due)

	// Collected entries are gone, future entries untouched.
	total, _, err = l.Collect(db, 13)
	assert.Nil(t, err)
	assert.Equal(t, true, total.IsZero())

	total, _, err = l.Collect(db, ^uint64(0))
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(120), total)

	left, err := l.Total(db)
	assert.Nil(t, err)
	assert.Equal(t, true, left.IsZero())
}

func TestInsertOverflow(t *testing.T) {
	db := store.MemStore()
	l := New()
	assert.Nil(t, l.Insert(db, 1, coin.MaxAmount()))
	if err := l.Insert(db, 1, coin.NewAmount(1)); !errors.ErrOverflow.Is(err) {
		t.Fatalf("unexpected error: %+v", err)
	}
}

func TestPage(t *testing.T) {
	db := store.MemStore()
	l := New()
	for p := uint64(1); p <= 600; p++ {
		assert.Nil(t, l.Insert(db, p*2, coin.NewAmount(p)))
	}

	cases := map[string]struct {
		FromIndex, Limit uint64
		WantLen          int
		WantFirst        uint64
	}{
		"default limit":   {WantLen: DefaultPageLimit, WantFirst: 2},
		"explicit limit":  {Limit: 3, WantLen: 3, WantFirst: 2},
		"capped limit":    {Limit: 10000, WantLen: MaxPageLimit, WantFirst: 2},
		"offset":          {FromIndex: 10, Limit: 5, WantLen: 5, WantFirst: 22},
		"offset near end": {FromIndex: 598, Limit: 10, WantLen: 2, WantFirst: 1198},
		"offset past end": {FromIndex: 700, WantLen: 0},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			page, err := l.Page(db, tc.FromIndex, tc.Limit)
			assert.Nil(t, err)
			assert.Equal(t, tc.WantLen, len(page))
			if tc.WantLen > 0 {
				assert.Equal(t, tc.WantFirst, page[0].Period)
			}
			for i := 1; i < len(page); i++ {
				if page[i-1].Period >= page[i].Period {
					t.Fatalf("not ascending at %d", i)
				}
			}
		})
	}
}

// The sum of everything inserted minus everything collected is always
// equal to the total visible through the paginated read.
func TestRunningTotal(t *testing.T) {
	db := store.MemStore()
	l := New()
	r := rand.New(rand.NewSource(1))

	var inserted, collected uint64
	for epoch := uint64(1); epoch <= 300; epoch++ {
		if r.Intn(3) > 0 {
			n := uint64(r.Intn(1000) + 1)
			assert.Nil(t, l.Insert(db, epoch+uint64(r.Intn(5)), coin.NewAmount(n)))
			inserted += n
		}
		if r.Intn(4) == 0 {
			total, _, err := l.Collect(db, epoch)
			assert.Nil(t, err)
			n, ok := total.Uint64()
			assert.Equal(t, true, ok)
			collected += n
		}

		var paged uint64
		for from := uint64(0); ; from += 7 {
			page, err := l.Page(db, from, 7)
			assert.Nil(t, err)
			if len(page) == 0 {
				break
			}
			for _, e := range page {
				n, _ := e.Amount.Uint64()
				paged += n
			}
		}
		if paged != inserted-collected {
			t.Fatalf("epoch %d: ledger holds %d, want %d", epoch, paged, inserted-collected)
		}
	}
}

func TestQueryHandler(t *testing.T) {
	db := store.MemStore()
	l := New()
	assert.Nil(t, l.Insert(db, 3, coin.NewAmount(30)))
	assert.Nil(t, l.Insert(db, 4, coin.NewAmount(40)))

	info := harvesttest.BlockInfo(t, harvesttest.Epoch0, 1)
	h := QueryHandler{ledger: l}

	res, err := h.Query(info, db, nil)
	assert.Nil(t, err)
	raw, err := json.Marshal(res)
	assert.Nil(t, err)
	assert.Equal(t, `[{"period":3,"amount":"30"},{"period":4,"amount":"40"}]`, string(raw))

	res, err = h.Query(info, db, []byte(`{"from_index": 1, "limit": 1}`))
	assert.Nil(t, err)
	assert.Equal(t, []PeriodAmount{{Period: 4, Amount: coin.NewAmount(40)}}, res)

	res, err = h.Query(info, db, []byte(`{"from_index": 5}`))
	assert.Nil(t, err)
	assert.Equal(t, []PeriodAmount{}, res)

	if _, err := h.Query(info, db, []byte(`{`)); !errors.ErrInput.Is(err) {
		t.Fatalf("unexpected error: %+v", err)
	}
}
