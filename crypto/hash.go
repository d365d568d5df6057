// Package crypto provides the opaque cryptographic primitives the ledger
// protocol is built on: a 20-byte content hash, ed25519 key pairs, and
// signatures over that hash. Generating the underlying key material and the
// low-level hash/base64 codecs are treated as solved problems here — this
// package wraps the standard library rather than reimplementing them.
package crypto

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// HashSize is the fixed width of a Hash in bytes.
const HashSize = sha1.Size

// Hash is a content-addressed 20-byte digest, used as the identifier for
// every entity in the ledger (identities, asset notes, accounts,
// transactions).
type Hash [HashSize]byte

// ZeroHash is the all-zero digest, used as a sentinel for "no value".
var ZeroHash Hash

// Sum returns the Hash of the concatenation of data.
func Sum(data ...[]byte) Hash {
	h := sha1.New()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// String returns the lowercase hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Less reports whether h sorts before other, byte-wise. Used to impose the
// canonical ascending account-id lock order for cross-account operations.
func (h Hash) Less(other Hash) bool {
	return bytes.Compare(h[:], other[:]) < 0
}

// Bytes returns a copy of the raw digest bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// HashFromHex decodes a hex-encoded 20-byte hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("crypto: invalid hash hex: %w", err)
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("crypto: hash must be %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// MarshalText implements encoding.TextMarshaler so Hash serializes as a hex
// string in JSON, matching the wire format described by the protocol.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	decoded, err := HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}
