package asset

import (
	"encoding/json"
	"testing"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/identity"
	"github.com/tolelom/signedledger/ledgererr"
)

func newTestIssuer(t *testing.T) *identity.PrivateIdentity {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	ident, err := identity.New(pub, priv, "dan", "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	return identity.NewPrivate(ident, priv)
}

func TestIssueAndValidate(t *testing.T) {
	issuer := newTestIssuer(t)
	corn := New("corn", "")
	note, err := Issue(issuer, corn, "bushel", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !note.Valid() {
		t.Error("freshly issued note should validate")
	}
	want := noteDigest(issuer.Identity().ID(), corn.ID(), "bushel", "")
	if note.ID() != want {
		t.Error("note id must be Hash(issuer ‖ asset ‖ name ‖ properties)")
	}
}

func TestImportRejectsWrongSignature(t *testing.T) {
	issuer := newTestIssuer(t)
	corn := New("corn", "")
	note, err := Issue(issuer, corn, "bushel", "")
	if err != nil {
		t.Fatal(err)
	}
	_, err = Import(issuer.Identity(), corn, "bushel", "different-props", note.Signature())
	if err == nil {
		t.Fatal("expected InvalidAssetNote for a signature/content mismatch")
	}
	if kind, ok := ledgererr.Of(err); !ok || kind != ledgererr.InvalidAssetNote {
		t.Errorf("got kind %v, want InvalidAssetNote", kind)
	}
}

func TestAssetNoteJSONRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)
	corn := New("corn", "")
	note, err := Issue(issuer, corn, "bushel", "organic")
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(note)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back AssetNote
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.ID() != note.ID() {
		t.Error("round-tripped note id mismatch")
	}
}
