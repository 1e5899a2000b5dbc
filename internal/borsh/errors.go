package borsh

import "errors"

// Codec errors. These are always definitive for the attempted
// encode/decode; callers never retry them.
var (
	// ErrTruncated is returned when a decode reads past the end of the
	// buffer, or a length prefix exceeds the remaining bytes.
	ErrTruncated = errors.New("buffer truncated")

	// ErrSchemaMismatch is returned when the bytes are long enough but do
	// not fit the schema (invalid bool byte, invalid option flag,
	// trailing bytes on a strict decode).
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrStringTooLong is returned on encode when a string exceeds its
	// schema bound.
	ErrStringTooLong = errors.New("string exceeds maximum length")
)
