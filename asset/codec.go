package asset

import (
	"encoding/json"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/identity"
)

type wireAsset struct {
	ID         crypto.Hash `json:"id"`
	Name       string      `json:"name"`
	Properties string      `json:"properties"`
}

// MarshalJSON implements json.Marshaler.
func (a *Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireAsset{ID: a.id, Name: a.name, Properties: a.properties})
}

// UnmarshalJSON implements json.Unmarshaler. The id is recomputed rather than
// trusted from the wire, so a tampered id is silently corrected rather than
// accepted; callers that need to detect tampering should compare IDs
// themselves.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var w wireAsset
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = *New(w.Name, w.Properties)
	return nil
}

type wireAssetNote struct {
	ID         crypto.Hash        `json:"id"`
	Issuer     *identity.Identity `json:"issuer"`
	AssetType  *Asset             `json:"asset_type"`
	Name       string             `json:"name"`
	Properties string             `json:"properties"`
	Signature  crypto.Signature   `json:"signature"`
}

// MarshalJSON implements json.Marshaler.
func (n *AssetNote) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireAssetNote{
		ID:         n.id,
		Issuer:     n.issuer,
		AssetType:  n.assetType,
		Name:       n.name,
		Properties: n.properties,
		Signature:  n.signature,
	})
}

// UnmarshalJSON implements json.Unmarshaler, re-verifying the issuer
// signature via Import so a deserialized note carries the same guarantee as
// one built in-process.
func (n *AssetNote) UnmarshalJSON(data []byte) error {
	var w wireAssetNote
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	note, err := Import(w.Issuer, w.AssetType, w.Name, w.Properties, w.Signature)
	if err != nil {
		return err
	}
	*n = *note
	return nil
}
