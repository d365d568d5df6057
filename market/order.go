// Package market implements the thin order-submission adapter the core
// ledger sits behind: it turns a buy/sell request into an Offer action
// inside a Transaction routed through the normal inbox/outbox/applied
// pipeline, and matches resting offers against each other to produce
// Trade transactions.
package market

import (
	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/ledger"
)

// Order sides.
const (
	Buy  = "buy"
	Sell = "sell"
)

// Order is the matcher's in-memory view of a resting Offer: enough to match
// it against the opposite side of the book and to produce Trade actions
// against the accounts it named.
type Order struct {
	TrxID           crypto.Hash
	Type            string
	AssetAccount    crypto.Hash
	CurrencyAccount crypto.Hash
	Price           uint64
	Amount          uint64
	MinAmount       uint64
	Start           uint64
	End             uint64

	filled uint64
}

// Unfilled returns the quantity of this order that has not yet matched.
func (o *Order) Unfilled() uint64 { return o.Amount - o.filled }

// orderFromOffer builds an Order from an applied Offer transaction, the way
// the original system's market_order constructor read the offer back out of
// the transaction that carried it.
func orderFromOffer(trxID crypto.Hash, off *ledger.Offer) *Order {
	return &Order{
		TrxID:           trxID,
		Type:            off.OrderType,
		AssetAccount:    off.AssetAccount,
		CurrencyAccount: off.CurrencyAccount,
		Price:           off.Price,
		Amount:          off.Amount,
		MinAmount:       off.MinAmount,
		Start:           off.Start,
		End:             off.End,
	}
}
