// Package borsh implements the little-endian, length-prefixed binary
// format used by the on-chain programs for both account state and
// instruction payloads.
package borsh

import (
	"encoding/binary"
	"fmt"
)

// Encoder writes schema fields into a growing buffer. The zero value is
// ready to use.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with capacity preallocated for size bytes.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

// Bytes returns the encoded buffer. The returned slice aliases the
// encoder's internal storage; callers who keep encoding must copy it.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// WriteU8 writes a single byte.
func (e *Encoder) WriteU8(v uint8) {
	e.buf = append(e.buf, v)
}

// WriteU16 writes a little-endian uint16.
func (e *Encoder) WriteU16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

// WriteU32 writes a little-endian uint32.
func (e *Encoder) WriteU32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// WriteU64 writes a little-endian uint64.
func (e *Encoder) WriteU64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// WriteI32 writes a little-endian int32 (two's complement).
func (e *Encoder) WriteI32(v int32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v))
}

// WriteI64 writes a little-endian int64 (two's complement).
func (e *Encoder) WriteI64(v int64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v))
}

// WriteBool writes a bool as a single 0/1 byte.
func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// WriteFixedBytes writes raw bytes without a length prefix.
func (e *Encoder) WriteFixedBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteString writes a u32 length prefix followed by the UTF-8 bytes.
// maxLen bounds the byte length; it is a wire-format constraint, not a
// business rule.
func (e *Encoder) WriteString(s string, maxLen int) error {
	if len(s) > maxLen {
		return fmt.Errorf("%w: %d > %d bytes", ErrStringTooLong, len(s), maxLen)
	}
	e.WriteU32(uint32(len(s)))
	e.buf = append(e.buf, s...)
	return nil
}

// WriteOptionU8 writes a 1-byte presence flag followed by the value when
// present.
func (e *Encoder) WriteOptionU8(v *uint8) {
	if v == nil {
		e.buf = append(e.buf, 0)
		return
	}
	e.buf = append(e.buf, 1, *v)
}
