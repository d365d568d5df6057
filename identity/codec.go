package identity

import (
	"encoding/json"

	"github.com/tolelom/signedledger/crypto"
)

// wireIdentity is the canonical JSON envelope for an Identity, used by the
// storage and rpc packages. Identity keeps its fields unexported so callers
// can't construct an unverified Identity by hand; this type is the only
// sanctioned door in and out.
type wireIdentity struct {
	ID         crypto.Hash      `json:"id"`
	PubKey     string           `json:"pub_key"`
	Name       string           `json:"name"`
	Date       uint64           `json:"date"`
	Properties string           `json:"properties"`
	Nonce      uint64           `json:"nonce"`
	Signature  crypto.Signature `json:"signature"`
}

// MarshalJSON implements json.Marshaler.
func (i *Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireIdentity{
		ID:         i.id,
		PubKey:     i.pubKey.Hex(),
		Name:       i.name,
		Date:       i.date,
		Properties: i.properties,
		Nonce:      i.nonce,
		Signature:  i.signature,
	})
}

// UnmarshalJSON implements json.Unmarshaler, re-verifying the self-signature
// so a deserialized Identity carries the same guarantees as a freshly
// constructed one.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var w wireIdentity
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	pub, err := crypto.PubKeyFromHex(w.PubKey)
	if err != nil {
		return err
	}
	ident, err := FromSigned(pub, w.Name, w.Properties, w.Date, w.Nonce, w.Signature)
	if err != nil {
		return err
	}
	*i = *ident
	return nil
}
