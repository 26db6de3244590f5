// Package record provides the on-disk layout of protein and peptide index
// records and a bounds-checked cursor for reading them.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ByteOrder is the byte order of every fixed-width integer in an index file.
var ByteOrder = binary.LittleEndian

// ErrTruncated is returned when a field extends past the end of the buffer.
var ErrTruncated = errors.New("record truncated")

// ParseError describes a malformed field at a byte offset.
type ParseError struct {
	Field  string
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Span is a half-open byte range [Lo, Hi) into a cursor's buffer.
type Span struct {
	Lo, Hi int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.Hi - s.Lo }

// Cursor reads fixed-width fields from a byte slice, advancing on success.
// A failed read leaves the cursor where it was.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor returns a cursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Offset returns the current read position.
func (c *Cursor) Offset() int { return c.off }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Done reports whether the whole buffer has been consumed.
func (c *Cursor) Done() bool { return c.off >= len(c.buf) }

// Bytes returns the underlying buffer.
func (c *Cursor) Bytes() []byte { return c.buf }

func (c *Cursor) need(field string, n int) error {
	if n < 0 {
		return &ParseError{Field: field, Offset: c.off, Err: fmt.Errorf("negative length %d", n)}
	}
	if c.Remaining() < n {
		return &ParseError{Field: field, Offset: c.off, Err: ErrTruncated}
	}
	return nil
}

// Uint8 reads one byte.
func (c *Cursor) Uint8(field string) (uint8, error) {
	if err := c.need(field, 1); err != nil {
		return 0, err
	}
	v := c.buf[c.off]
	c.off++
	return v, nil
}

// Uint16 reads a 16-bit unsigned integer.
func (c *Cursor) Uint16(field string) (uint16, error) {
	if err := c.need(field, 2); err != nil {
		return 0, err
	}
	v := ByteOrder.Uint16(c.buf[c.off:])
	c.off += 2
	return v, nil
}

// Uint32 reads a 32-bit unsigned integer.
func (c *Cursor) Uint32(field string) (uint32, error) {
	if err := c.need(field, 4); err != nil {
		return 0, err
	}
	v := ByteOrder.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

// Int32 reads a 32-bit signed integer.
func (c *Cursor) Int32(field string) (int32, error) {
	v, err := c.Uint32(field)
	return int32(v), err
}

// Float64 reads an IEEE-754 double.
func (c *Cursor) Float64(field string) (float64, error) {
	if err := c.need(field, 8); err != nil {
		return 0, err
	}
	v := math.Float64frombits(ByteOrder.Uint64(c.buf[c.off:]))
	c.off += 8
	return v, nil
}

// Skip advances past n bytes.
func (c *Cursor) Skip(field string, n int) error {
	if err := c.need(field, n); err != nil {
		return err
	}
	c.off += n
	return nil
}

// Terminated returns the span of an n-byte field followed by a NUL byte and
// advances past both.
func (c *Cursor) Terminated(field string, n int) (Span, error) {
	if err := c.need(field, n); err != nil {
		return Span{}, err
	}
	if err := c.need(field, n+1); err != nil {
		return Span{}, err
	}
	if c.buf[c.off+n] != 0 {
		return Span{}, &ParseError{Field: field, Offset: c.off + n, Err: errors.New("missing NUL terminator")}
	}
	s := Span{Lo: c.off, Hi: c.off + n}
	c.off += n + 1
	return s, nil
}
