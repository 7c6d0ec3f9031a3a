package harvesttest

import (
	"testing"
	"time"

	"github.com/iov-one/harvest"
)

// Self is the account identity used by test harvesters.
const Self harvest.AccountID = "harvester.near"

// BlockInfo returns block information at given time and epoch, executed by
// the Self account. Test fails if the information cannot be created.
func BlockInfo(t testing.TB, at time.Time, epoch uint64) harvest.BlockInfo {
	t.Helper()
	info, err := harvest.NewBlockInfo(harvest.Head{Time: at, Epoch: epoch}, Self, nil)
	if err != nil {
		t.Fatalf("cannot create block info: %s", err)
	}
	return info
}

// Epoch0 is the time of the first test block.
var Epoch0 = time.Date(2022, time.April, 1, 12, 0, 0, 0, time.UTC)
