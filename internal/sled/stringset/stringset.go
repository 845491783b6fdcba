// Package stringset implements the fixed-capacity set of fixed-length
// strings described in spec §4.3: a flat slot table with free-slot
// tracking, indexed and sequential iteration that skips free slots.
package stringset

import "fmt"

// Set is a fixed-capacity string set. Every slot holds up to maxEntryLen-1
// bytes (room is reserved for bookkeeping, matching the source's
// length-plus-terminator slot sizing).
type Set struct {
	slots       []string
	used        []bool
	maxEntryLen int
	count       int
	allowDup    bool
}

// New creates a Set over caller-supplied slots/used storage (same length,
// typically carved from an alloc.Arena via alloc.AllocSlice so the set
// never touches the Go heap after construction). Each slot holds up to
// maxEntryLen-1 bytes. allowDup controls the duplicate policy (spec §4.3:
// "duplicate policy is configurable").
func New(slots []string, used []bool, maxEntryLen int, allowDup bool) *Set {
	if len(slots) != len(used) {
		panic(fmt.Sprintf("stringset: slots/used length mismatch: %d vs %d", len(slots), len(used)))
	}
	return &Set{
		slots:       slots,
		used:        used,
		maxEntryLen: maxEntryLen,
		allowDup:    allowDup,
	}
}

func (s *Set) Cap() int { return len(s.slots) }
func (s *Set) Len() int { return s.count }

func (s *Set) IsEmpty() bool { return s.count == 0 }
func (s *Set) IsFull() bool  { return s.count == len(s.slots) }

// Add inserts str, failing if it exceeds the configured entry length, the
// set is full, or (when duplicates are disallowed) str is already present.
func (s *Set) Add(str string) error {
	if len(str) > s.maxEntryLen-1 {
		return fmt.Errorf("stringset: entry %q exceeds max length %d", str, s.maxEntryLen-1)
	}
	if !s.allowDup {
		if _, found := s.find(str); found {
			return fmt.Errorf("stringset: duplicate entry %q", str)
		}
	}
	if s.IsFull() {
		return fmt.Errorf("stringset: set is full (capacity %d)", len(s.slots))
	}
	for i, used := range s.used {
		if !used {
			s.slots[i] = str
			s.used[i] = true
			s.count++
			return nil
		}
	}
	return fmt.Errorf("stringset: set is full (capacity %d)", len(s.slots))
}

func (s *Set) find(str string) (int, bool) {
	for i, used := range s.used {
		if used && s.slots[i] == str {
			return i, true
		}
	}
	return 0, false
}

// Remove deletes the first occurrence of str, returning false if not found.
func (s *Set) Remove(str string) bool {
	i, found := s.find(str)
	if !found {
		return false
	}
	s.used[i] = false
	s.slots[i] = ""
	s.count--
	return true
}

// Contains reports whether str is present.
func (s *Set) Contains(str string) bool {
	_, found := s.find(str)
	return found
}

// Clear empties the set without changing its capacity.
func (s *Set) Clear() {
	for i := range s.used {
		s.used[i] = false
		s.slots[i] = ""
	}
	s.count = 0
}

// At returns the string stored at slot index idx and whether that slot is
// occupied (indexed iteration, per spec §4.3).
func (s *Set) At(idx int) (string, bool) {
	if idx < 0 || idx >= len(s.slots) || !s.used[idx] {
		return "", false
	}
	return s.slots[idx], true
}

// Each performs sequential iteration over occupied slots only, in slot
// order, calling fn for each. Iteration stops early if fn returns false.
func (s *Set) Each(fn func(str string) bool) {
	for i, used := range s.used {
		if !used {
			continue
		}
		if !fn(s.slots[i]) {
			return
		}
	}
}
