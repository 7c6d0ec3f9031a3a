package harvest

import (
	"testing"
	"time"

	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/harvesttest/assert"
)

func TestDecayed(t *testing.T) {
	cases := map[string]struct {
		Available coin.Amount
		Elapsed   time.Duration
		Window    time.Duration
		Want      coin.Amount
	}{
		"zero window releases everything": {
			Available: amount(1000),
			Elapsed:   0,
			Window:    0,
			Want:      amount(1000),
		},
		"nothing elapsed": {
			Available: amount(1000),
			Elapsed:   0,
			Window:    time.Hour,
			Want:      amount(0),
		},
		"clock went backwards": {
			Available: amount(1000),
			Elapsed:   -time.Minute,
			Window:    time.Hour,
			Want:      amount(0),
		},
		"quarter of the window": {
			Available: amount(1000),
			Elapsed:   15 * time.Minute,
			Window:    time.Hour,
			Want:      amount(250),
		},
		"rounds down": {
			Available: amount(10),
			Elapsed:   time.Minute,
			Window:    3 * time.Minute,
			Want:      amount(3),
		},
		"window elapsed": {
			Available: amount(1000),
			Elapsed:   time.Hour,
			Window:    time.Hour,
			Want:      amount(1000),
		},
		"largest balance": {
			Available: coin.MaxAmount(),
			Elapsed:   72 * time.Hour,
			Window:    72*time.Hour + time.Second,
			Want:      mustShare(t, coin.MaxAmount(), 259200, 259201),
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got, err := decayed(tc.Available, tc.Elapsed, tc.Window)
			assert.Nil(t, err)
			assert.Equal(t, tc.Want, got)
			if got.Cmp(tc.Available) > 0 {
				t.Fatalf("released %s out of %s", got, tc.Available)
			}
		})
	}
}

func mustShare(t testing.TB, total coin.Amount, n, d uint64) coin.Amount {
	t.Helper()
	a, err := coin.ShareOf(total, n, d)
	assert.Nil(t, err)
	return a
}
