package container

import "encoding/binary"

// This file implements the format's binary primitives: fixed-width
// little-endian integers and length-prefixed byte strings. Every
// multi-byte field is packed with no alignment padding; readers that
// cannot do unaligned access must copy into a temporary first.

func putUint8(b []byte, v uint8) []byte  { return append(b, v) }
func putUint16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}
func putUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}
func putUint64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

// putBytesLP appends a u32 length prefix followed by the raw bytes.
func putBytesLP(b []byte, data []byte) []byte {
	b = putUint32(b, uint32(len(data)))
	return append(b, data...)
}

// cursor is a small bounds-checked reader over a byte slice, tracking an
// absolute offset so errors can report where in the file they occurred.
type cursor struct {
	buf  []byte
	pos  int
	base int // absolute offset of buf[0] within the whole file, for error reporting
}

func newCursor(buf []byte, base int) *cursor {
	return &cursor{buf: buf, base: base}
}

func (c *cursor) malformed(reason string) error {
	return &MalformedInputError{Offset: c.base + c.pos, Reason: reason}
}

func (c *cursor) need(n int) error {
	if c.pos+n > len(c.buf) {
		return c.malformed("short buffer")
	}
	return nil
}

func (c *cursor) readUint8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) readUint32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) readUint64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

// readBytesLP reads a u32 length prefix then that many raw bytes.
func (c *cursor) readBytesLP() ([]byte, error) {
	n, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	if err := c.need(int(n)); err != nil {
		return nil, c.malformed("length prefix exceeds remaining bytes")
	}
	v := c.buf[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return v, nil
}

// remaining returns the slice of bytes not yet consumed.
func (c *cursor) remaining() []byte {
	return c.buf[c.pos:]
}
