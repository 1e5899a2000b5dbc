// Package pubkey provides the 32-byte Solana address value type and
// program-derived address (PDA) computation.
package pubkey

import (
	"bytes"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Size is the length of a Solana public key in bytes.
const Size = 32

// PublicKey is a Solana account address.
type PublicKey [Size]byte

// SystemProgramID is the native system program address.
var SystemProgramID = MustFromBase58("11111111111111111111111111111111")

// FromBase58 parses a base58-encoded public key.
func FromBase58(s string) (PublicKey, error) {
	var pk PublicKey
	decoded, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode base58 pubkey: %w", err)
	}
	if len(decoded) != Size {
		return pk, fmt.Errorf("invalid pubkey length: expected %d bytes, got %d", Size, len(decoded))
	}
	copy(pk[:], decoded)
	return pk, nil
}

// MustFromBase58 parses a base58 public key and panics on failure.
// Intended for package-level constants only.
func MustFromBase58(s string) PublicKey {
	pk, err := FromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// FromBytes builds a public key from a raw 32-byte slice.
func FromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != Size {
		return pk, fmt.Errorf("invalid pubkey length: expected %d bytes, got %d", Size, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the base58 encoding.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the raw key bytes.
func (pk PublicKey) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, pk[:])
	return b
}

// IsZero reports whether the key is all zeroes.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// Equals reports byte equality with another key.
func (pk PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(pk[:], other[:])
}

// IsOnCurve reports whether the key bytes form a valid ed25519 curve point.
// Addresses with a private-key counterpart are on the curve; program-derived
// addresses must be off it.
func (pk PublicKey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}
