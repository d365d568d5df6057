package ledger

import (
	"encoding/json"

	"github.com/tolelom/signedledger/crypto"
)

func init() {
	registerAction("transfer", func(data json.RawMessage) (Action, error) {
		var t Transfer
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		return &t, nil
	})
}

// Transfer moves amount from From's balance to To's balance. It requires
// both accounts' signatures.
type Transfer struct {
	From   crypto.Hash `json:"from"`
	To     crypto.Hash `json:"to"`
	Amount int64       `json:"amount"`
}

// TypeTag implements Action.
func (t *Transfer) TypeTag() string { return "transfer" }

// RequiredSignatures implements Action.
func (t *Transfer) RequiredSignatures() []crypto.Hash {
	return []crypto.Hash{t.From, t.To}
}

// Apply implements Action. Accounts other than From and To are untouched.
func (t *Transfer) Apply(account crypto.Hash) int64 {
	switch account {
	case t.From:
		return -t.Amount
	case t.To:
		return t.Amount
	default:
		return 0
	}
}
