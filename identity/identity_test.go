package identity

import (
	"encoding/json"
	"testing"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/ledgererr"
)

func TestNewSelfSignsAndVerifies(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	id, err := New(pub, priv, "dan", `{"city":"springfield"}`, 1000, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !id.Verify() {
		t.Error("freshly constructed identity should verify")
	}
	if id.ID() != pub.ID() {
		t.Error("identity id must be Hash(pubkey)")
	}
}

func TestFromSignedRejectsTamperedFields(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	id, err := New(pub, priv, "dan", "", 1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, err = FromSigned(pub, "dan", "", 1000, 0, id.Signature())
	if err != nil {
		t.Fatalf("expected a clean re-import to succeed: %v", err)
	}
	_, err = FromSigned(pub, "scott", "", 1000, 0, id.Signature())
	if err == nil {
		t.Fatal("expected InvalidSignature for a tampered name")
	}
	if kind, ok := ledgererr.Of(err); !ok || kind != ledgererr.InvalidSignature {
		t.Errorf("got kind %v, want InvalidSignature", kind)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	id, err := New(pub, priv, "dan", "props", 42, 7)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Identity
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.ID() != id.ID() || back.Name() != id.Name() || back.Nonce() != id.Nonce() {
		t.Error("round-tripped identity does not match original")
	}
}

func TestPrivateIdentitySign(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	id, err := New(pub, priv, "dan", "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	pi := NewPrivate(id, priv)
	h := crypto.Sum([]byte("some digest"))
	sig := pi.Sign(h)
	if !id.PubVerify(h, sig) {
		t.Error("signature produced by PrivateIdentity should verify against the Identity's pubkey")
	}
}
