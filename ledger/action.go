// Package ledger implements the account/transaction/balance-agreement state
// machine: the core of the signed-ledger protocol.
package ledger

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/ledgererr"
)

// Action is one step of a Transaction: a typed, self-describing balance
// mutation. Implementations form a closed set (Transfer, Offer, Trade,
// CloseTrade); third-party actions are not supported.
type Action interface {
	// TypeTag is the stable wire discriminator for this action's JSON
	// envelope, e.g. "transfer".
	TypeTag() string
	// RequiredSignatures lists the accounts that must sign a transaction
	// carrying this action before it can be finalized.
	RequiredSignatures() []crypto.Hash
	// Apply returns the balance delta this action contributes for account.
	// It returns 0 for any account not touched by this action.
	Apply(account crypto.Hash) int64
}

type actionConstructor func(data json.RawMessage) (Action, error)

var actionRegistry = map[string]actionConstructor{}

// registerAction adds a constructor to the process-wide action factory.
// Called from each action variant's init(). A duplicate tag is a programming
// error, caught at start-up rather than papered over.
func registerAction(tag string, ctor actionConstructor) {
	if _, dup := actionRegistry[tag]; dup {
		panic("ledger: action type already registered: " + tag)
	}
	actionRegistry[tag] = ctor
}

// actionEnvelope is the wire shape for a single action: {"type": ..., "data": ...}.
type actionEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// encodeActions produces the canonical JSON encoding of an action list, used
// both for the wire and as the input to a Transaction's content hash.
func encodeActions(actions []Action) ([]byte, error) {
	envelopes := make([]actionEnvelope, len(actions))
	for i, a := range actions {
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("ledger: encode action %s: %w", a.TypeTag(), err)
		}
		envelopes[i] = actionEnvelope{Type: a.TypeTag(), Data: data}
	}
	return json.Marshal(envelopes)
}

// decodeActions parses the canonical JSON encoding of an action list,
// dispatching each envelope through the type registry.
func decodeActions(raw []byte) ([]Action, error) {
	var envelopes []actionEnvelope
	if err := json.Unmarshal(raw, &envelopes); err != nil {
		return nil, fmt.Errorf("ledger: decode actions: %w", err)
	}
	actions := make([]Action, len(envelopes))
	for i, e := range envelopes {
		ctor, ok := actionRegistry[e.Type]
		if !ok {
			return nil, ledgererr.New(ledgererr.UnknownAction, "unknown action type %q", e.Type)
		}
		a, err := ctor(e.Data)
		if err != nil {
			return nil, fmt.Errorf("ledger: decode %s action: %w", e.Type, err)
		}
		actions[i] = a
	}
	return actions, nil
}

// requiredSignatures is the deduplicated, ascending-sorted union of
// RequiredSignatures() across actions. Sorting makes the signer set
// deterministic for callers that need to walk it in canonical-lock order
// (see the per-account critical sections in Ledger).
func requiredSignatures(actions []Action) []crypto.Hash {
	seen := make(map[crypto.Hash]struct{})
	var out []crypto.Hash
	for _, a := range actions {
		for _, id := range a.RequiredSignatures() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
