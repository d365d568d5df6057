package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
)

// Signature is a raw ed25519 signature. The wire encoding is base64, per the
// protocol's canonical JSON envelopes.
type Signature []byte

// Sign signs hash with priv and returns the raw signature.
func Sign(priv PrivateKey, hash Hash) Signature {
	return Signature(ed25519.Sign(ed25519.PrivateKey(priv), hash[:]))
}

// Verify reports whether sig is a valid signature over hash by pub.
func Verify(pub PublicKey, hash Hash, sig Signature) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), hash[:], []byte(sig))
}

// MarshalText implements encoding.TextMarshaler, encoding the signature as
// base64 for JSON envelopes.
func (s Signature) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(s)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signature) UnmarshalText(text []byte) error {
	decoded, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid signature base64: %w", err)
	}
	*s = decoded
	return nil
}

// IsZero reports whether s carries no signature bytes.
func (s Signature) IsZero() bool {
	return len(s) == 0
}
