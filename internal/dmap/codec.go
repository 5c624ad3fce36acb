// Package dmap implements the Digital Media Access Protocol tagged-element
// wire format: a 4-byte ASCII tag, a 4-byte big-endian length, and a payload
// of that many bytes. It provides a two-phase Writer (open a container,
// write children, close — the length gets back-patched) and a Reader that
// walks an already-framed buffer one element at a time.
package dmap

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned by Reader.Next when the buffer ends mid-element.
var ErrTruncated = errors.New("dmap: truncated element")

// ErrUnknownTag is returned when a tag has no registry entry and the caller
// has not supplied an explicit type.
var ErrUnknownTag = errors.New("dmap: unknown tag")

const headerLen = 8 // 4-byte tag + 4-byte length

// Writer accumulates a DMAP byte stream. The zero value is not usable; use
// NewWriter. Writer is not safe for concurrent use.
type Writer struct {
	buf   []byte
	stack []int // byte offsets of open containers' length fields
}

// NewWriter returns an empty Writer ready for use.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// Bytes returns the accumulated buffer. It is invalid to call Bytes while a
// container is still open.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) writeHeader(tag string, length int) {
	if len(tag) != 4 {
		panic(fmt.Sprintf("dmap: tag %q must be exactly 4 bytes", tag))
	}
	w.buf = append(w.buf, tag...)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(length))
	w.buf = append(w.buf, lenBuf[:]...)
}

// AddByte writes a 1-byte signed integer element.
func (w *Writer) AddByte(tag string, v int8) int {
	w.writeHeader(tag, 1)
	w.buf = append(w.buf, byte(v))
	return headerLen + 1
}

// AddUByte writes a 1-byte unsigned integer element.
func (w *Writer) AddUByte(tag string, v uint8) int {
	w.writeHeader(tag, 1)
	w.buf = append(w.buf, v)
	return headerLen + 1
}

// AddShort writes a 2-byte big-endian integer element.
func (w *Writer) AddShort(tag string, v int16) int {
	w.writeHeader(tag, 2)
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	w.buf = append(w.buf, b[:]...)
	return headerLen + 2
}

// AddInt writes a 4-byte big-endian integer element.
func (w *Writer) AddInt(tag string, v int32) int {
	w.writeHeader(tag, 4)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
	return headerLen + 4
}

// AddLong writes an 8-byte big-endian integer element.
func (w *Writer) AddLong(tag string, v int64) int {
	w.writeHeader(tag, 8)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
	return headerLen + 8
}

// AddDate writes a 4-byte big-endian seconds-since-epoch element.
func (w *Writer) AddDate(tag string, unixSeconds int32) int {
	return w.AddInt(tag, unixSeconds)
}

// AddString writes a UTF-8 string element. The wire length is the byte
// length of s; strings are not null-terminated.
func (w *Writer) AddString(tag string, s string) int {
	w.writeHeader(tag, len(s))
	w.buf = append(w.buf, s...)
	return headerLen + len(s)
}

// AddVersion writes a packed major.minor.patch version element: two shorts,
// the first the major version, the second minor<<8|patch.
func (w *Writer) AddVersion(tag string, major, minor, patch uint8) int {
	w.writeHeader(tag, 4)
	var b [4]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(major))
	b[2] = minor
	b[3] = patch
	w.buf = append(w.buf, b[:]...)
	return headerLen + 4
}

// OpenContainer writes a container header with a placeholder length and
// pushes its offset so CloseContainer can back-patch it. Containers may
// nest arbitrarily.
func (w *Writer) OpenContainer(tag string) {
	w.writeHeader(tag, 0)
	w.stack = append(w.stack, len(w.buf)-4)
}

// CloseContainer back-patches the most recently opened container's length
// field with the number of bytes written since OpenContainer. It panics if
// no container is open — that is a programming error, not a runtime
// condition callers should handle.
func (w *Writer) CloseContainer() int {
	n := len(w.stack)
	if n == 0 {
		panic("dmap: CloseContainer with no open container")
	}
	lenOff := w.stack[n-1]
	w.stack = w.stack[:n-1]
	inner := len(w.buf) - (lenOff + 4)
	binary.BigEndian.PutUint32(w.buf[lenOff:lenOff+4], uint32(inner))
	return headerLen + inner
}

// AddContainer writes a complete container element by calling fn to emit its
// children, then closing it. It's a convenience wrapper around
// OpenContainer/CloseContainer for the common case where the children are
// known up front.
func (w *Writer) AddContainer(tag string, fn func(w *Writer)) int {
	w.OpenContainer(tag)
	fn(w)
	return w.CloseContainer()
}

// AddRaw appends an already-framed element (tag+length+payload, as produced
// by a previous Writer) verbatim. Used to splice pre-encoded rows — e.g. a
// catalog row's "mlit" container — into a listing container without
// re-parsing them.
func (w *Writer) AddRaw(framed []byte) int {
	w.buf = append(w.buf, framed...)
	return len(framed)
}

// Element is one decoded tagged element: its tag, registered type (or 0 if
// unregistered), and raw payload slice (not copied — valid only as long as
// the underlying buffer is not mutated).
type Element struct {
	Tag     string
	Type    Type
	Payload []byte
}

// Reader walks an already-framed DMAP byte buffer one top-level element at a
// time. To descend into a container, construct a new Reader over its
// Payload.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Next decodes the next element, or returns (Element{}, false, nil) at
// end of buffer. A malformed header (truncated tag/length or payload
// shorter than declared) returns ErrTruncated.
func (r *Reader) Next() (Element, bool, error) {
	if r.pos >= len(r.buf) {
		return Element{}, false, nil
	}
	if r.pos+headerLen > len(r.buf) {
		return Element{}, false, ErrTruncated
	}
	tag := string(r.buf[r.pos : r.pos+4])
	length := int(binary.BigEndian.Uint32(r.buf[r.pos+4 : r.pos+8]))
	start := r.pos + headerLen
	if length < 0 || start+length > len(r.buf) {
		return Element{}, false, ErrTruncated
	}
	payload := r.buf[start : start+length]
	r.pos = start + length

	typ, _ := TagType(tag)
	return Element{Tag: tag, Type: typ, Payload: payload}, true, nil
}
