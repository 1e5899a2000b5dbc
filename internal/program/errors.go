package program

import "errors"

var (
	// ErrWrongDiscriminator is returned when a buffer carries a valid
	// discriminator for a different account kind than the one requested.
	// The input buffer is left untouched so the caller can retry another
	// variant.
	ErrWrongDiscriminator = errors.New("wrong account discriminator")

	// ErrUnknownDiscriminator is returned when the leading byte matches
	// no known account kind.
	ErrUnknownDiscriminator = errors.New("unknown account discriminator")

	// ErrInvalidParams is returned by the caller-boundary validators for
	// business-rule violations.
	ErrInvalidParams = errors.New("invalid instruction parameters")
)
