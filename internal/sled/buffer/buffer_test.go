package buffer

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendRejectsOverflow(t *testing.T) {
	b := New(make([]byte, 0, 8), 4)
	require.True(t, b.Append([]byte{1, 2}))
	require.False(t, b.Append([]byte{3, 4, 5}))
	require.Equal(t, 2, b.Size())
}

func TestShuffleClampsAndDiscards(t *testing.T) {
	b := New(make([]byte, 0, 8), 8)
	b.Append([]byte{1, 2, 3, 4})
	b.Shuffle(2)
	require.Equal(t, []byte{3, 4}, b.Data())
	b.Shuffle(100)
	require.Equal(t, 0, b.Size())
}

func TestPackerReaderRoundtrip(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		b := New(make([]byte, 0, 64), 64)
		p := NewPacker(b, order)
		require.True(t, p.PutU8(0xAB))
		require.True(t, p.PutI16(-7))
		require.True(t, p.PutU32(123456))
		require.True(t, p.PutI64(-99999999))
		require.True(t, p.PutF32(3.5))
		require.True(t, p.PutF64(2.718281828))
		require.True(t, p.PutString("hello"))
		require.True(t, p.PutString(""))

		r := NewReader(b.Data(), order)
		require.Equal(t, uint8(0xAB), r.GetU8())
		require.Equal(t, int16(-7), r.GetI16())
		require.Equal(t, uint32(123456), r.GetU32())
		require.Equal(t, int64(-99999999), r.GetI64())
		require.InDelta(t, float32(3.5), r.GetF32(), 0.0001)
		require.InDelta(t, 2.718281828, r.GetF64(), 0.0000001)
		require.Equal(t, "hello", r.GetString())
		require.Equal(t, "", r.GetString())
	}
}

func TestPeekStringLenDoesNotAdvance(t *testing.T) {
	b := New(make([]byte, 0, 64), 64)
	p := NewPacker(b, binary.LittleEndian)
	p.PutString("abc")

	r := NewReader(b.Data(), binary.LittleEndian)
	peeked := r.PeekStringLen()
	require.Equal(t, 4, peeked) // len("abc")=3, +1
	require.Equal(t, "abc", r.GetString())
}

func TestShortReadPanics(t *testing.T) {
	r := NewReader([]byte{1}, binary.LittleEndian)
	require.Panics(t, func() { r.GetU32() })
}

func TestPutStringRejectsOversize(t *testing.T) {
	b := New(make([]byte, 0, 1<<17), 1<<17)
	p := NewPacker(b, binary.LittleEndian)
	huge := make([]byte, 70000)
	require.False(t, p.PutString(string(huge)))
}
