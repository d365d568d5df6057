package ledger

import (
	"encoding/json"

	"github.com/tolelom/signedledger/crypto"
)

func init() {
	registerAction("trade", func(data json.RawMessage) (Action, error) {
		var t Trade
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		return &t, nil
	})
}

// Trade records one party's fill against an OfferTrx: it moves DeltaAsset
// into AssetAccount and DeltaCurrency into CurrencyAccount (both may be
// negative, e.g. for the selling side of the match). The matcher is
// responsible for only producing trades consistent with the referenced
// offer's remaining amount and time window; this type only applies the
// already-agreed deltas.
type Trade struct {
	OfferTrx        crypto.Hash `json:"offer_trx"`
	AssetAccount    crypto.Hash `json:"asset_account"`
	CurrencyAccount crypto.Hash `json:"currency_account"`
	DeltaAsset      int64       `json:"delta_asset"`
	DeltaCurrency   int64       `json:"delta_currency"`
}

// TypeTag implements Action.
func (t *Trade) TypeTag() string { return "trade" }

// RequiredSignatures implements Action.
func (t *Trade) RequiredSignatures() []crypto.Hash {
	return []crypto.Hash{t.AssetAccount, t.CurrencyAccount}
}

// Apply implements Action.
func (t *Trade) Apply(account crypto.Hash) int64 {
	switch account {
	case t.AssetAccount:
		return t.DeltaAsset
	case t.CurrencyAccount:
		return t.DeltaCurrency
	default:
		return 0
	}
}
