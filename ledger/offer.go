package ledger

import (
	"encoding/json"

	"github.com/tolelom/signedledger/crypto"
)

func init() {
	registerAction("offer", func(data json.RawMessage) (Action, error) {
		var o Offer
		if err := json.Unmarshal(data, &o); err != nil {
			return nil, err
		}
		return &o, nil
	})
}

// Offer encodes a limit order in currency-per-asset units: the submitter
// offers to trade up to Amount units of the asset held in AssetAccount at
// Price units of currency per unit, reserving Price*Amount from
// CurrencyAccount while the offer is open. The market matcher, not this
// type, enforces the [Start, End] fill window and partial-fill rules; Apply
// only reflects the balance reservation.
type Offer struct {
	OrderType       string      `json:"order_type"`
	AssetAccount    crypto.Hash `json:"asset_account"`
	CurrencyAccount crypto.Hash `json:"currency_account"`
	Amount          uint64      `json:"amount"`
	MinAmount       uint64      `json:"min_amount"`
	Price           uint64      `json:"price"`
	Start           uint64      `json:"start"`
	End             uint64      `json:"end"`
}

// TypeTag implements Action.
func (o *Offer) TypeTag() string { return "offer" }

// RequiredSignatures implements Action.
func (o *Offer) RequiredSignatures() []crypto.Hash {
	return []crypto.Hash{o.AssetAccount, o.CurrencyAccount}
}

// Apply implements Action: reserves Price*Amount from the currency account.
func (o *Offer) Apply(account crypto.Hash) int64 {
	if account == o.CurrencyAccount {
		return -int64(o.Price * o.Amount)
	}
	return 0
}
