package wallet

import (
	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/identity"
	"github.com/tolelom/signedledger/ledger"
)

// Wallet holds a key pair and the identity it controls, and provides the
// signing helpers an account owner's client needs to participate in the
// ledger protocol: self-identity creation and signature-line production.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded ed25519 public key.
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// ID returns Hash(pubkey), the stable identifier this wallet's key controls.
func (w *Wallet) ID() crypto.Hash {
	return w.pub.ID()
}

// NewIdentity self-signs a fresh Identity under this wallet's key and pairs
// it with the private key, ready to register with a host as an account
// owner or to issue asset notes.
func (w *Wallet) NewIdentity(name, properties string, date uint64) (*identity.PrivateIdentity, error) {
	ident, err := identity.New(w.pub, w.priv, name, properties, date, 0)
	if err != nil {
		return nil, err
	}
	return identity.NewPrivate(ident, w.priv), nil
}

// SignLine produces an Accepted or Rejected SignatureLine for trx on behalf
// of accountID, signed with this wallet's key. Callers submit the result to
// a host via Ledger.SignTransaction.
func (w *Wallet) SignLine(trx *ledger.Transaction, accountID crypto.Hash, sigNum uint64, state, note string, date uint64) ledger.SignatureLine {
	line := ledger.SignatureLine{
		AccountID: accountID,
		Date:      date,
		SigNum:    sigNum,
		State:     state,
		Note:      note,
	}
	line.Signature = crypto.Sign(w.priv, ledger.SignatureLineDigest(trx.ID(), line))
	return line
}
