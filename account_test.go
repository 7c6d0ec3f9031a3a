package harvest

import (
	"strings"
	"testing"

	"github.com/iov-one/harvest/errors"
)

func TestAccountIDValidate(t *testing.T) {
	cases := map[string]struct {
		id      AccountID
		wantErr *errors.Error
	}{
		"top level":         {id: "alice"},
		"sub account":       {id: "reward_1.alice.testnet"},
		"dashes":            {id: "pool-v1.poolv1.near"},
		"hex implicit":      {id: AccountID(strings.Repeat("ab", 32))},
		"empty":             {id: "", wantErr: errors.ErrEmpty},
		"too short":         {id: "a", wantErr: errors.ErrInput},
		"too long":          {id: AccountID(strings.Repeat("a", 65)), wantErr: errors.ErrInput},
		"upper case":        {id: "Alice", wantErr: errors.ErrInput},
		"double separator":  {id: "a..b", wantErr: errors.ErrInput},
		"trailing dot":      {id: "alice.", wantErr: errors.ErrInput},
		"leading separator": {id: "-alice", wantErr: errors.ErrInput},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if err := tc.id.Validate(); !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
