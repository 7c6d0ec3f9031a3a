package ledger

import (
	"encoding/json"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
)

// PageQuery are the parameters of the paginated read.
type PageQuery struct {
	FromIndex uint64 `json:"from_index"`
	Limit     uint64 `json:"limit"`
}

// RegisterQuery exposes the paginated read as "/pending".
func RegisterQuery(qr harvest.QueryRouter) {
	qr.Register("/pending", QueryHandler{ledger: New()})
}

// QueryHandler answers the paginated read of the ledger.
type QueryHandler struct {
	ledger Ledger
}

var _ harvest.QueryHandler = QueryHandler{}

func (h QueryHandler) Query(info harvest.BlockInfo, db harvest.ReadOnlyKVStore, data []byte) (interface{}, error) {
	var q PageQuery
	if len(data) > 0 {
		if err := json.Unmarshal(data, &q); err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "query: %s", err)
		}
	}
	page, err := h.ledger.Page(db, q.FromIndex, q.Limit)
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = []PeriodAmount{}
	}
	return page, nil
}
