package crypto

import "testing"

func TestGenerateKeyPairAndID(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if derived := priv.Public(); derived.Hex() != pub.Hex() {
		t.Error("derived public key does not match")
	}
	id := pub.ID()
	if id.IsZero() {
		t.Error("identity hash should not be zero for a real key")
	}
}

func TestSignVerify(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	h := Sum([]byte("hello ledger"))
	sig := Sign(priv, h)
	if !Verify(pub, h, sig) {
		t.Error("valid signature failed to verify")
	}
	tampered := Sum([]byte("tampered"))
	if Verify(pub, tampered, sig) {
		t.Error("signature should not verify against a different hash")
	}
}

func TestHashHexRoundTrip(t *testing.T) {
	h := Sum([]byte("abc"))
	s := h.String()
	back, err := HashFromHex(s)
	if err != nil {
		t.Fatalf("HashFromHex: %v", err)
	}
	if back != h {
		t.Error("hash did not round-trip through hex")
	}
	if _, err := HashFromHex("00"); err == nil {
		t.Error("expected error for wrong-length hash hex")
	}
}

func TestSumHashesPlainConcatenation(t *testing.T) {
	a := Sum([]byte("ab"), []byte("c"))
	b := Sum([]byte("a"), []byte("bc"))
	// Both concatenate to "abc" so these must match: Sum hashes the
	// concatenation, not a length-prefixed encoding.
	if a != b {
		t.Error("Sum should hash the plain concatenation of its arguments")
	}
}
