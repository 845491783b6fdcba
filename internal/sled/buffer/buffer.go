// Package buffer implements the append-only byte buffer and the typed
// Packer/Reader pair described in spec §4.2. Integers are written in the
// endianness negotiated at handshake (spec §6.1); strings are a u16 byte
// length followed by raw bytes, no terminator.
package buffer

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Buffer is an append-only byte buffer with a configured maximum size and a
// shuffle operation that discards a byte prefix (used after a message has
// been consumed from a receive buffer).
type Buffer struct {
	data    []byte
	maxSize int
}

// New wraps backing as the buffer's storage, starting empty. maxSize caps
// the logical buffer size; appends stay in backing while it has capacity.
func New(backing []byte, maxSize int) *Buffer {
	return &Buffer{data: backing[:0], maxSize: maxSize}
}

// Append adds bytes to the buffer's tail, rejecting the append (returning
// false, no partial write) if it would exceed MaxSize.
func (b *Buffer) Append(p []byte) bool {
	if len(b.data)+len(p) > b.maxSize {
		return false
	}
	b.data = append(b.data, p...)
	return true
}

// Shuffle discards the first n bytes by left-shifting the remainder,
// clamped to the current size.
func (b *Buffer) Shuffle(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	copy(b.data, b.data[n:])
	b.data = b.data[:len(b.data)-n]
}

// Reset discards all buffered bytes.
func (b *Buffer) Reset() { b.data = b.data[:0] }

func (b *Buffer) Data() []byte  { return b.data }
func (b *Buffer) Size() int     { return len(b.data) }
func (b *Buffer) MaxSize() int  { return b.maxSize }
func (b *Buffer) IsEmpty() bool { return len(b.data) == 0 }

// Packer appends typed values to the tail of an underlying Buffer, updating
// its size as it goes. A string pack fails when the string is longer than
// 65535 bytes or does not fit; an empty string is legal and writes length
// zero.
type Packer struct {
	buf   *Buffer
	order binary.ByteOrder
}

// NewPacker returns a Packer writing into buf using the given byte order
// (the order negotiated at handshake — see scmp.Endianness).
func NewPacker(buf *Buffer, order binary.ByteOrder) *Packer {
	return &Packer{buf: buf, order: order}
}

func (p *Packer) put(n int, fill func([]byte)) bool {
	tmp := make([]byte, n)
	fill(tmp)
	return p.buf.Append(tmp)
}

func (p *Packer) PutU8(v uint8) bool  { return p.buf.Append([]byte{v}) }
func (p *Packer) PutI8(v int8) bool   { return p.PutU8(uint8(v)) }
func (p *Packer) PutU16(v uint16) bool {
	return p.put(2, func(b []byte) { p.order.PutUint16(b, v) })
}
func (p *Packer) PutI16(v int16) bool { return p.PutU16(uint16(v)) }
func (p *Packer) PutU32(v uint32) bool {
	return p.put(4, func(b []byte) { p.order.PutUint32(b, v) })
}
func (p *Packer) PutI32(v int32) bool { return p.PutU32(uint32(v)) }
func (p *Packer) PutU64(v uint64) bool {
	return p.put(8, func(b []byte) { p.order.PutUint64(b, v) })
}
func (p *Packer) PutI64(v int64) bool { return p.PutU64(uint64(v)) }
func (p *Packer) PutF32(v float32) bool {
	return p.PutU32(math.Float32bits(v))
}
func (p *Packer) PutF64(v float64) bool {
	return p.PutU64(math.Float64bits(v))
}

// PutString writes a u16 length prefix followed by the raw bytes. An empty
// string is legal (writes length 0).
func (p *Packer) PutString(s string) bool {
	if len(s) > math.MaxUint16 {
		return false
	}
	if !p.PutU16(uint16(len(s))) {
		return false
	}
	return p.buf.Append([]byte(s))
}

// Reader consumes typed values from a held cursor into data. Reads are
// bounds-asserted (they panic on short input) rather than gracefully
// degrading: the framer guarantees whole messages are handed to a Reader,
// exactly as spec §4.2 states.
type Reader struct {
	data   []byte
	cursor int
	order  binary.ByteOrder
}

func NewReader(data []byte, order binary.ByteOrder) *Reader {
	return &Reader{data: data, order: order}
}

func (r *Reader) Remaining() int { return len(r.data) - r.cursor }

func (r *Reader) need(n int) []byte {
	if r.Remaining() < n {
		panic(fmt.Sprintf("buffer: short read: need %d bytes, have %d", n, r.Remaining()))
	}
	b := r.data[r.cursor : r.cursor+n]
	r.cursor += n
	return b
}

func (r *Reader) GetU8() uint8   { return r.need(1)[0] }
func (r *Reader) GetI8() int8    { return int8(r.GetU8()) }
func (r *Reader) GetU16() uint16 { return r.order.Uint16(r.need(2)) }
func (r *Reader) GetI16() int16  { return int16(r.GetU16()) }
func (r *Reader) GetU32() uint32 { return r.order.Uint32(r.need(4)) }
func (r *Reader) GetI32() int32  { return int32(r.GetU32()) }
func (r *Reader) GetU64() uint64 { return r.order.Uint64(r.need(8)) }
func (r *Reader) GetI64() int64  { return int64(r.GetU64()) }
func (r *Reader) GetF32() float32 {
	return math.Float32frombits(r.GetU32())
}
func (r *Reader) GetF64() float64 {
	return math.Float64frombits(r.GetU64())
}

// PeekStringLen returns length+1 (accounting for a terminator the caller may
// want to add) without advancing the cursor, matching the source's
// peek_string_len semantics exactly.
func (r *Reader) PeekStringLen() int {
	if r.Remaining() < 2 {
		panic("buffer: short read: peek_string_len needs 2 bytes")
	}
	return int(r.order.Uint16(r.data[r.cursor:r.cursor+2])) + 1
}

func (r *Reader) GetString() string {
	n := int(r.GetU16())
	return string(r.need(n))
}
