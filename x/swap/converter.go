package swap

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/coin"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x"
	"github.com/iov-one/harvest/x/promise"
)

// oneYocto is attached to every token transfer, as required by the token
// standard of the external chain.
var oneYocto = coin.NewAmount(1)

// Settings describe where the rewards are converted and forwarded.
type Settings struct {
	// Token is the exchange selling the bought asset, it is also the
	// asset's token contract.
	Token harvest.AccountID
	// Forward receives the bought asset.
	Forward      harvest.AccountID
	FarmDuration harvest.UnixDuration
	FarmID       uint64
}

// Bookkeeper keeps track of the converted funds.
type Bookkeeper interface {
	x.Refunder
	// RecordForwarded is called for every forwarded amount of the
	// bought asset.
	RecordForwarded(db harvest.KVStore, info harvest.BlockInfo, amount coin.Amount) error
	// SwapSettings returns the current conversion settings.
	SwapSettings(db harvest.ReadOnlyKVStore) (Settings, error)
}

// Converter issues the conversion and forwarding calls.
type Converter struct {
	book Bookkeeper
}

// NewConverter returns a converter reporting to given bookkeeper.
func NewConverter(book Bookkeeper) Converter {
	return Converter{book: book}
}

// ConvertAndForward issues the buy call with amount attached. The bought
// asset is forwarded once the call succeeds.
func (c Converter) ConvertAndForward(db harvest.KVStore, info harvest.BlockInfo, amount coin.Amount) error {
	s, err := c.book.SwapSettings(db)
	if err != nil {
		return errors.Wrap(err, "swap settings")
	}
	buy, err := harvest.FunctionCall(s.Token, "buy", map[string]interface{}{"expected": nil}, amount)
	if err != nil {
		return errors.Wrap(err, "buy call")
	}
	if _, err := promise.Issue(db, info, &BuyCallbackMsg{Amount: amount}, buy); err != nil {
		return errors.Wrap(err, "issue buy")
	}
	info.Logger().Info("buying", "amount", amount, "exchange", s.Token)
	return nil
}

// farmingDetails is the payload attached to the forwarded asset.
type farmingDetails struct {
	EndDate string `json:"end_date"`
	FarmID  uint64 `json:"farm_id"`
}

type transferCallArgs struct {
	Receiver harvest.AccountID `json:"receiver_id"`
	Amount   coin.Amount       `json:"amount"`
	Memo     string            `json:"memo"`
	Msg      string            `json:"msg"`
}

// forward issues the transfer of amount of the bought asset to the
// downstream consumer.
func (c Converter) forward(db harvest.KVStore, info harvest.BlockInfo, amount coin.Amount) error {
	s, err := c.book.SwapSettings(db)
	if err != nil {
		return errors.Wrap(err, "swap settings")
	}
	payload, err := json.Marshal(farmingDetails{
		EndDate: strconv.FormatInt(info.BlockTime().Add(s.FarmDuration.Duration()).UnixNano(), 10),
		FarmID:  s.FarmID,
	})
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	call, err := harvest.FunctionCall(s.Token, "ft_transfer_call", transferCallArgs{
		Receiver: s.Forward,
		Amount:   amount,
		Memo:     fmt.Sprintf("Enjoy reward of %s, friends", amount),
		Msg:      string(payload),
	}, oneYocto)
	if err != nil {
		return errors.Wrap(err, "transfer call")
	}
	if _, err := promise.Issue(db, info, nil, call); err != nil {
		return errors.Wrap(err, "issue transfer")
	}
	if err := c.book.RecordForwarded(db, info, amount); err != nil {
		return errors.Wrap(err, "record forwarded")
	}
	info.Logger().Info("forwarding", "amount", amount, "receiver", s.Forward)
	return nil
}
