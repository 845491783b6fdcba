// Package alloc implements the sequential allocator described in spec §4.1:
// a two-phase layout where a sizing pass computes the exact number of bytes
// a later allocating pass will consume from one caller-supplied buffer. No
// free operation exists — lifetimes are bounded by the caller buffer, and no
// Go-heap allocation happens once an Arena is built over it.
package alloc

import (
	"fmt"
	"unsafe"
)

// Allocator is satisfied by both phases of the sequential allocator.
type Allocator interface {
	// Allocate reserves size bytes aligned to alignment (a power of two) and
	// returns the byte offset of the reservation within the logical buffer.
	Allocate(size, alignment uintptr) (offset uintptr, err error)
	// BytesAllocated is the total span (including alignment padding)
	// consumed so far.
	BytesAllocated() uintptr
}

func isPowerOfTwo(v uintptr) bool { return v != 0 && v&(v-1) == 0 }

func alignUp(offset, alignment uintptr) uintptr {
	return (offset + alignment - 1) &^ (alignment - 1)
}

// Sizing is the sizing-pass allocator: it never dereferences memory, it just
// replays the exact allocation sequence a later Arena pass will make and
// reports the total span required.
type Sizing struct {
	offset uintptr
}

// NewSizing returns a fresh sizing allocator starting at offset zero.
func NewSizing() *Sizing { return &Sizing{} }

func (s *Sizing) Allocate(size, alignment uintptr) (uintptr, error) {
	if !isPowerOfTwo(alignment) {
		return 0, fmt.Errorf("alloc: alignment %d is not a power of two", alignment)
	}
	aligned := alignUp(s.offset, alignment)
	s.offset = aligned + size
	return aligned, nil
}

func (s *Sizing) BytesAllocated() uintptr { return s.offset }

// RequiredMemory runs fn against a fresh Sizing allocator and returns the
// total number of bytes it would consume. fn must perform exactly the
// allocation sequence the real construction path performs.
func RequiredMemory(fn func(Allocator) error) (uintptr, error) {
	s := NewSizing()
	if err := fn(s); err != nil {
		return 0, err
	}
	return s.BytesAllocated(), nil
}

// Arena is the allocating-pass allocator: it owns a caller-supplied buffer
// and hands out aligned sub-regions from it. Exhausting the buffer is a
// programming error (it panics, matching the source's assert-on-overflow
// discipline rather than returning a recoverable error).
type Arena struct {
	buf    []byte
	offset uintptr
}

// NewArena wraps buf for sequential sub-allocation. buf is never resized.
func NewArena(buf []byte) *Arena { return &Arena{buf: buf} }

func (a *Arena) Allocate(size, alignment uintptr) (uintptr, error) {
	if !isPowerOfTwo(alignment) {
		return 0, fmt.Errorf("alloc: alignment %d is not a power of two", alignment)
	}
	aligned := alignUp(a.offset, alignment)
	end := aligned + size
	if end > uintptr(len(a.buf)) {
		panic(fmt.Sprintf("alloc: arena exhausted: need %d bytes at offset %d, have %d", size, aligned, len(a.buf)))
	}
	a.offset = end
	return aligned, nil
}

func (a *Arena) BytesAllocated() uintptr { return a.offset }

// Bytes returns the raw sub-slice for a prior Allocate call's (offset, size).
func (a *Arena) Bytes(offset, size uintptr) []byte {
	return a.buf[offset : offset+size]
}

// AllocSlice reserves room for n elements of type T (via alignment/size
// derived from a zero value) and returns a typed slice backed directly by
// the arena's buffer — no separate Go-heap allocation. This is how the
// fixed-capacity collections (string set slots, breakpoint array, profile
// stack, memory-trace ring) get their backing storage in accordance with
// spec §9's "no dynamic allocations after construction".
func AllocSlice[T any](a *Arena, n int) ([]T, error) {
	var zero T
	size := unsafe.Sizeof(zero)
	align := unsafe.Alignof(zero)
	if n == 0 {
		return nil, nil
	}
	offset, err := a.Allocate(size*uintptr(n), align)
	if err != nil {
		return nil, err
	}
	raw := a.Bytes(offset, size*uintptr(n))
	return unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), n), nil
}

// SizeSlice is the Sizing-side counterpart of AllocSlice: it advances the
// sizing allocator by the same amount AllocSlice[T] would, without needing a
// real buffer. Callers use this in their RequiredMemory(fn) closures.
func SizeSlice[T any](s Allocator, n int) error {
	var zero T
	if n == 0 {
		return nil
	}
	_, err := s.Allocate(unsafe.Sizeof(zero)*uintptr(n), unsafe.Alignof(zero))
	return err
}
