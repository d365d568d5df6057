package ledger

import (
	"testing"

	"github.com/tolelom/signedledger/asset"
	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/identity"
)

type testParty struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
	*identity.PrivateIdentity
}

func newTestParty(t *testing.T, name string) *testParty {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	ident, err := identity.New(pub, priv, name, "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	return &testParty{priv: priv, pub: pub, PrivateIdentity: identity.NewPrivate(ident, priv)}
}

// allocate grants acct a batch of freshly-numbered signature numbers,
// signed by host, and accepts them immediately (skipping the separate
// owner counter-signature step, a client-side bookkeeping nicety with no
// effect on protocol correctness).
func allocate(t *testing.T, host *testParty, acct *Account, nums []uint64) {
	t.Helper()
	hostSig := crypto.Sign(host.priv, SigNumsDigest(nums))
	if err := acct.AllocateSignatureNumbers(nums, hostSig); err != nil {
		t.Fatalf("AllocateSignatureNumbers: %v", err)
	}
	acct.reservedSigIDs = append(acct.reservedSigIDs, nums...)
}

func issuerCornNote(t *testing.T, issuer *testParty) *asset.AssetNote {
	t.Helper()
	corn := asset.New("corn", "")
	note, err := asset.Issue(issuer.PrivateIdentity, corn, "bushel", "")
	if err != nil {
		t.Fatal(err)
	}
	return note
}

func signLine(t *testing.T, owner *testParty, trx *Transaction, acctID crypto.Hash, sigNum uint64, state string, date uint64) SignatureLine {
	t.Helper()
	line := SignatureLine{AccountID: acctID, Date: date, SigNum: sigNum, State: state}
	digest := SignatureLineDigest(trx.ID(), line)
	line.Signature = owner.Sign(digest)
	return line
}
