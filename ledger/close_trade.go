package ledger

import (
	"encoding/json"

	"github.com/tolelom/signedledger/crypto"
)

func init() {
	registerAction("close_trade", func(data json.RawMessage) (Action, error) {
		var c CloseTrade
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return &c, nil
	})
}

// CloseTrade cancels the unfilled remainder of OfferTrx, releasing the
// reservation Offer.Apply made against CurrencyAccount back to the offerer.
type CloseTrade struct {
	OfferTrx        crypto.Hash `json:"offer_trx"`
	CurrencyAccount crypto.Hash `json:"currency_account"`
	RefundAmount    int64       `json:"refund_amount"`
}

// TypeTag implements Action.
func (c *CloseTrade) TypeTag() string { return "close_trade" }

// RequiredSignatures implements Action.
func (c *CloseTrade) RequiredSignatures() []crypto.Hash {
	return []crypto.Hash{c.CurrencyAccount}
}

// Apply implements Action.
func (c *CloseTrade) Apply(account crypto.Hash) int64 {
	if account == c.CurrencyAccount {
		return c.RefundAmount
	}
	return 0
}
