// Package identity implements the ledger protocol's notion of a stable
// participant: a public key plus a self-signed set of properties.
package identity

import (
	"encoding/binary"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/ledgererr"
)

// Identity is a public key plus signed properties. Its id is Hash(pubkey)
// and never changes; any change to name/date/properties is logically a new
// identity with a new signature (and, since the id is pubkey-derived, the
// same id — callers that need a fresh id must generate a fresh key).
//
// All derived fields (id, decoded pub key) are computed once at
// construction time and stored, not recomputed lazily on each access.
type Identity struct {
	id         crypto.Hash
	pubKey     crypto.PublicKey
	name       string
	date       uint64 // ms since epoch
	properties string
	nonce      uint64
	signature  crypto.Signature
}

// PrivateIdentity pairs an Identity with the private key that controls it.
// It is held only by the owning party and is never transmitted.
type PrivateIdentity struct {
	identity *Identity
	privKey  crypto.PrivateKey
}

// selfSignDigest computes H(id ‖ name ‖ date_le64 ‖ props), the digest an
// identity's self-signature covers.
func selfSignDigest(id crypto.Hash, name string, date uint64, properties string) crypto.Hash {
	var dateLE [8]byte
	binary.LittleEndian.PutUint64(dateLE[:], date)
	return crypto.Sum(id.Bytes(), []byte(name), dateLE[:], []byte(properties))
}

// New creates and self-signs a fresh Identity using the given key pair.
// pub must be the public counterpart of priv.
func New(pub crypto.PublicKey, priv crypto.PrivateKey, name, properties string, date, nonce uint64) (*Identity, error) {
	id := pub.ID()
	digest := selfSignDigest(id, name, date, properties)
	sig := crypto.Sign(priv, digest)
	ident := &Identity{
		id:         id,
		pubKey:     pub,
		name:       name,
		date:       date,
		properties: properties,
		nonce:      nonce,
		signature:  sig,
	}
	// Constructing from our own signature should always verify; checking
	// anyway catches a caller passing a priv/pub pair that don't match.
	if !ident.Verify() {
		return nil, ledgererr.New(ledgererr.InvalidIdentity, "self-signature does not verify for identity %q", name)
	}
	return ident, nil
}

// FromSigned reconstructs an Identity from externally supplied fields,
// validating the embedded signature. Used when importing an identity a peer
// sent over the wire.
func FromSigned(pub crypto.PublicKey, name, properties string, date, nonce uint64, sig crypto.Signature) (*Identity, error) {
	id := pub.ID()
	ident := &Identity{
		id:         id,
		pubKey:     pub,
		name:       name,
		date:       date,
		properties: properties,
		nonce:      nonce,
		signature:  sig,
	}
	if !ident.Verify() {
		return nil, ledgererr.New(ledgererr.InvalidSignature, "identity %q self-signature does not verify", name)
	}
	return ident, nil
}

// ID returns Hash(pubkey), this identity's stable identifier.
func (i *Identity) ID() crypto.Hash { return i.id }

// Name returns the identity's declared name.
func (i *Identity) Name() string { return i.name }

// Date returns the identity's signing timestamp, ms since epoch.
func (i *Identity) Date() uint64 { return i.date }

// Properties returns the identity's free-form properties blob.
func (i *Identity) Properties() string { return i.properties }

// Nonce returns the identity's nonce.
func (i *Identity) Nonce() uint64 { return i.nonce }

// PubKey returns the identity's public key.
func (i *Identity) PubKey() crypto.PublicKey { return i.pubKey }

// Signature returns the self-signature over the identity's digest.
func (i *Identity) Signature() crypto.Signature { return i.signature }

// Verify reports whether the self-signature matches the identity's fields.
func (i *Identity) Verify() bool {
	digest := selfSignDigest(i.id, i.name, i.date, i.properties)
	return crypto.Verify(i.pubKey, digest, i.signature)
}

// PubVerify checks an arbitrary signature against this identity's public key.
func (i *Identity) PubVerify(hash crypto.Hash, sig crypto.Signature) bool {
	return crypto.Verify(i.pubKey, hash, sig)
}

// NewPrivate pairs ident with priv, the private key that controls it. priv
// must be the private counterpart of ident's public key.
func NewPrivate(ident *Identity, priv crypto.PrivateKey) *PrivateIdentity {
	return &PrivateIdentity{identity: ident, privKey: priv}
}

// Identity returns the public Identity this private key controls.
func (p *PrivateIdentity) Identity() *Identity { return p.identity }

// Sign signs an arbitrary hash with the held private key.
func (p *PrivateIdentity) Sign(hash crypto.Hash) crypto.Signature {
	return crypto.Sign(p.privKey, hash)
}

// PrivKey returns the raw private key. Handle with care — this is the only
// place in the module that exposes it outside the wallet keystore.
func (p *PrivateIdentity) PrivKey() crypto.PrivateKey { return p.privKey }
