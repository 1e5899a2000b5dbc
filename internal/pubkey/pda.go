package pubkey

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// PDA derivation limits, fixed by the runtime.
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

// pdaMarker is appended to the hash input to domain-separate program
// addresses from ordinary key material.
var pdaMarker = []byte("ProgramDerivedAddress")

// ErrNoValidBump is returned when no bump in [0,255] produces an off-curve
// address for the given seed set.
var ErrNoValidBump = errors.New("no valid bump found for seeds")

// errOnCurve is returned by CreateProgramAddress when the candidate lands
// on the curve and therefore cannot be a program address.
var errOnCurve = errors.New("derived address is on the curve")

// CreateProgramAddress computes sha256(seeds ‖ program ‖ marker) and
// returns it as an address if it is off the curve.
func CreateProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, fmt.Errorf("too many seeds: %d > %d", len(seeds), MaxSeeds)
	}
	h := sha256.New()
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("seed %d too long: %d > %d bytes", i, len(seed), MaxSeedLength)
		}
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write(pdaMarker)

	var pk PublicKey
	copy(pk[:], h.Sum(nil))

	if pk.IsOnCurve() {
		return PublicKey{}, errOnCurve
	}
	return pk, nil
}

// FindProgramAddress derives the canonical program address for the seed
// set, trying bump values from 255 down to 0 and accepting the first
// candidate that lands off the curve. The descending order is part of the
// contract: the on-chain runtime searches the same way, so the first hit
// is the canonical (address, bump) pair.
func FindProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		candidate := make([][]byte, len(seeds), len(seeds)+1)
		copy(candidate, seeds)
		candidate = append(candidate, []byte{uint8(bump)})

		addr, err := CreateProgramAddress(candidate, program)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, errOnCurve) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrNoValidBump
}
