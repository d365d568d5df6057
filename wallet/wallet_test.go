package wallet

import (
	"path/filepath"
	"testing"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/ledger"
)

func TestSaveLoadKeyRoundTrip(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "keystore.json")
	if err := SaveKey(path, "correct horse", w.PrivKey()); err != nil {
		t.Fatalf("SaveKey: %v", err)
	}
	loaded, err := LoadKey(path, "correct horse")
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if loaded.Public().Hex() != w.PubKey() {
		t.Error("loaded key does not match the original")
	}
}

func TestLoadKeyRejectsWrongPassword(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "keystore.json")
	if err := SaveKey(path, "correct horse", w.PrivKey()); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadKey(path, "wrong password"); err == nil {
		t.Error("expected an error decrypting with the wrong password")
	}
}

func TestLoadKeyMissingFile(t *testing.T) {
	if _, err := LoadKey(filepath.Join(t.TempDir(), "missing.json"), "pw"); err == nil {
		t.Error("expected an error loading a nonexistent keystore")
	}
}

func TestNewIdentitySelfSigns(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	priv, err := w.NewIdentity("dan", "", 1000)
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	if !priv.Identity().Verify() {
		t.Error("self-signed identity should verify")
	}
	if priv.Identity().ID() != w.ID() {
		t.Error("identity id should match the wallet's key-derived id")
	}
}

func TestSignLineProducesVerifiableSignature(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	other, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	transfer := &ledger.Transfer{From: w.ID(), To: other.ID(), Amount: 5}
	trx, err := ledger.New([]ledger.Action{transfer}, "pay", 1000)
	if err != nil {
		t.Fatal(err)
	}
	line := w.SignLine(trx, w.ID(), 1, ledger.SigAccepted, "", 1000)
	digest := ledger.SignatureLineDigest(trx.ID(), line)
	if !crypto.Verify(w.pub, digest, line.Signature) {
		t.Error("signature line should verify against the wallet's own public key")
	}
}
