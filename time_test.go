package harvest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/iov-one/harvest/errors"
)

func TestUnixTimeUnmarshal(t *testing.T) {
	cases := map[string]struct {
		raw      string
		wantTime UnixTime
		wantErr  *errors.Error
	}{
		"zero time as number": {
			raw:      "0",
			wantTime: 0,
		},
		"a time as string": {
			raw:      `"2019-04-04T11:35:40.89181085+02:00"`,
			wantTime: 1554370540,
		},
		"a time as number": {
			raw:      "1554370540",
			wantTime: 1554370540,
		},
		"negative number": {
			raw:     "-1",
			wantErr: errors.ErrInput,
		},
		"invalid string": {
			raw:     `"not a time string"`,
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var got UnixTime
			err := json.Unmarshal([]byte(tc.raw), &got)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %s", err)
			}
			if got != tc.wantTime {
				t.Fatalf("want %d time, got %d", tc.wantTime, got)
			}
		})
	}
}

func TestUnixTimeArithmetic(t *testing.T) {
	now := time.Now()
	unow := AsUnixTime(now)
	later := unow.Add(time.Hour + 4*time.Second)

	if want := now.Add(time.Hour + 4*time.Second).Unix(); want != int64(later) {
		t.Fatalf("want %d, got %d", want, later)
	}
	if got := later.Sub(unow); got != time.Hour+4*time.Second {
		t.Fatalf("unexpected difference: %s", got)
	}
}

func TestUnixDurationJSON(t *testing.T) {
	cases := map[string]struct {
		raw     string
		want    UnixDuration
		wantErr *errors.Error
	}{
		"seconds": {
			raw:  "259200",
			want: 259200,
		},
		"go duration": {
			raw:  `"72h"`,
			want: 259200,
		},
		"sub second precision is dropped": {
			raw:  `"1.5s"`,
			want: 1,
		},
		"garbage": {
			raw:     `"three days"`,
			wantErr: errors.ErrInput,
		},
		"object": {
			raw:     `{}`,
			wantErr: errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var got UnixDuration
			err := json.Unmarshal([]byte(tc.raw), &got)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %s", err)
			}
			if got != tc.want {
				t.Fatalf("want %d, got %d", tc.want, got)
			}
		})
	}

	raw, err := json.Marshal(UnixDuration(3600))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `"1h0m0s"` {
		t.Fatalf("unexpected serialization: %s", raw)
	}
}
