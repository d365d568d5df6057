// Package asset implements the ledger protocol's notion of a fungible asset
// type and the signed notes that vouch for units of it.
package asset

import (
	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/identity"
	"github.com/tolelom/signedledger/ledgererr"
)

// Asset is a named asset type, e.g. "corn" or "USD". Its id is
// Hash(name ‖ properties) and is stable for the life of the asset.
type Asset struct {
	id         crypto.Hash
	name       string
	properties string
}

// New creates an Asset, computing its id eagerly.
func New(name, properties string) *Asset {
	return &Asset{
		id:         crypto.Sum([]byte(name), []byte(properties)),
		name:       name,
		properties: properties,
	}
}

// ID returns Hash(name ‖ properties).
func (a *Asset) ID() crypto.Hash { return a.id }

// Name returns the asset's declared name.
func (a *Asset) Name() string { return a.name }

// Properties returns the asset's free-form properties blob.
func (a *Asset) Properties() string { return a.properties }

// AssetNote is an issuer's signed vouch that backs units of an Asset — the
// thing accounts actually hold balances of. Its id is
// Hash(issuer.id ‖ asset.id ‖ name ‖ properties); the issuer's signature
// covers the same digest.
type AssetNote struct {
	id         crypto.Hash
	issuer     *identity.Identity
	assetType  *Asset
	name       string
	properties string
	signature  crypto.Signature
}

func noteDigest(issuerID, assetID crypto.Hash, name, properties string) crypto.Hash {
	return crypto.Sum(issuerID.Bytes(), assetID.Bytes(), []byte(name), []byte(properties))
}

// Issue creates and self-signs a new AssetNote on behalf of issuer.
func Issue(issuer *identity.PrivateIdentity, assetType *Asset, name, properties string) (*AssetNote, error) {
	issuerIdent := issuer.Identity()
	digest := noteDigest(issuerIdent.ID(), assetType.ID(), name, properties)
	sig := issuer.Sign(digest)
	note := &AssetNote{
		id:         digest,
		issuer:     issuerIdent,
		assetType:  assetType,
		name:       name,
		properties: properties,
		signature:  sig,
	}
	if !note.Valid() {
		return nil, ledgererr.New(ledgererr.InvalidAssetNote, "self-issued note %q does not verify", name)
	}
	return note, nil
}

// Import reconstructs an AssetNote from externally supplied fields,
// validating the embedded issuer signature. Used when a peer hands us a note
// it issued.
func Import(issuer *identity.Identity, assetType *Asset, name, properties string, sig crypto.Signature) (*AssetNote, error) {
	digest := noteDigest(issuer.ID(), assetType.ID(), name, properties)
	note := &AssetNote{
		id:         digest,
		issuer:     issuer,
		assetType:  assetType,
		name:       name,
		properties: properties,
		signature:  sig,
	}
	if !note.Valid() {
		return nil, ledgererr.New(ledgererr.InvalidAssetNote, "imported note %q does not verify", name)
	}
	return note, nil
}

// ID returns Hash(issuer.id ‖ asset.id ‖ name ‖ properties).
func (n *AssetNote) ID() crypto.Hash { return n.id }

// Issuer returns the identity that issued this note.
func (n *AssetNote) Issuer() *identity.Identity { return n.issuer }

// IssuerID returns Hash(issuer pubkey), used by the ledger package to
// exempt an asset's issuer from the insufficient-funds check when they
// spend from an account holding their own issuance.
func (n *AssetNote) IssuerID() crypto.Hash { return n.issuer.ID() }

// AssetType returns the underlying Asset this note vouches for.
func (n *AssetNote) AssetType() *Asset { return n.assetType }

// Name returns the note's declared name.
func (n *AssetNote) Name() string { return n.name }

// Properties returns the note's free-form properties blob.
func (n *AssetNote) Properties() string { return n.properties }

// Signature returns the issuer's signature over the note's digest.
func (n *AssetNote) Signature() crypto.Signature { return n.signature }

// Valid reports whether the note's id matches its declared fields and the
// issuer's signature verifies against that id.
func (n *AssetNote) Valid() bool {
	digest := noteDigest(n.issuer.ID(), n.assetType.ID(), n.name, n.properties)
	if digest != n.id {
		return false
	}
	return n.issuer.PubVerify(digest, n.signature)
}
