package borsh

import (
	"encoding/binary"
	"fmt"
)

// Decoder reads schema fields from an immutable input buffer, tracking an
// offset. It never mutates the input, so a failed decode leaves the caller
// free to retry the same bytes against a different schema.
type Decoder struct {
	buf    []byte
	offset int
}

// NewDecoder returns a decoder over buf. The decoder does not copy buf;
// callers must not mutate it while decoding.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.offset
}

// Finish returns ErrSchemaMismatch if unread bytes remain. Account decodes
// for zero-padded buffers skip this; instruction decodes require it.
func (d *Decoder) Finish() error {
	if d.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrSchemaMismatch, d.Remaining())
	}
	return nil
}

func (d *Decoder) need(n int) error {
	if d.Remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, d.offset, d.Remaining())
	}
	return nil
}

// ReadU8 reads a single byte.
func (d *Decoder) ReadU8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[d.offset]
	d.offset++
	return v, nil
}

// ReadU16 reads a little-endian uint16.
func (d *Decoder) ReadU16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.buf[d.offset:])
	d.offset += 2
	return v, nil
}

// ReadU32 reads a little-endian uint32.
func (d *Decoder) ReadU32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.offset:])
	d.offset += 4
	return v, nil
}

// ReadU64 reads a little-endian uint64.
func (d *Decoder) ReadU64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.buf[d.offset:])
	d.offset += 8
	return v, nil
}

// ReadI32 reads a little-endian int32.
func (d *Decoder) ReadI32() (int32, error) {
	v, err := d.ReadU32()
	return int32(v), err
}

// ReadI64 reads a little-endian int64.
func (d *Decoder) ReadI64() (int64, error) {
	v, err := d.ReadU64()
	return int64(v), err
}

// ReadBool reads a strict 0/1 byte.
func (d *Decoder) ReadBool() (bool, error) {
	v, err := d.ReadU8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid bool byte 0x%02x", ErrSchemaMismatch, v)
	}
}

// ReadFixedBytes reads n raw bytes into a fresh slice.
func (d *Decoder) ReadFixedBytes(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, d.buf[d.offset:])
	d.offset += n
	return out, nil
}

// ReadString reads a u32 length prefix followed by that many UTF-8 bytes.
// A length exceeding the remaining buffer is a truncation, never a partial
// read; maxLen guards against hostile prefixes before any allocation.
func (d *Decoder) ReadString(maxLen int) (string, error) {
	n, err := d.ReadU32()
	if err != nil {
		return "", err
	}
	if int(n) > maxLen {
		return "", fmt.Errorf("%w: string length %d > %d", ErrSchemaMismatch, n, maxLen)
	}
	if err := d.need(int(n)); err != nil {
		return "", err
	}
	s := string(d.buf[d.offset : d.offset+int(n)])
	d.offset += int(n)
	return s, nil
}

// ReadOptionU8 reads a 1-byte presence flag and, when set, the value.
func (d *Decoder) ReadOptionU8() (*uint8, error) {
	flag, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	switch flag {
	case 0:
		return nil, nil
	case 1:
		v, err := d.ReadU8()
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, fmt.Errorf("%w: invalid option flag 0x%02x", ErrSchemaMismatch, flag)
	}
}
