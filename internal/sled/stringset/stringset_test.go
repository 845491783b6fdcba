package stringset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSet(maxEntries, maxEntryLen int, allowDup bool) *Set {
	return New(make([]string, maxEntries), make([]bool, maxEntries), maxEntryLen, allowDup)
}

func TestAddRemoveRestoresState(t *testing.T) {
	s := newTestSet(4, 16, false)
	require.NoError(t, s.Add("a/foo.lua"))
	require.True(t, s.Contains("a/foo.lua"))
	require.True(t, s.Remove("a/foo.lua"))
	require.False(t, s.Contains("a/foo.lua"))
	require.True(t, s.IsEmpty())
}

func TestRejectsDuplicateWhenDisallowed(t *testing.T) {
	s := newTestSet(4, 16, false)
	require.NoError(t, s.Add("x"))
	require.Error(t, s.Add("x"))
}

func TestAllowsDuplicateWhenConfigured(t *testing.T) {
	s := newTestSet(4, 16, true)
	require.NoError(t, s.Add("x"))
	require.NoError(t, s.Add("x"))
	require.Equal(t, 2, s.Len())
}

func TestRejectsOverLengthEntry(t *testing.T) {
	s := newTestSet(4, 4, false)
	require.Error(t, s.Add("toolong"))
}

func TestFullSetRejectsAdd(t *testing.T) {
	s := newTestSet(2, 16, false)
	require.NoError(t, s.Add("a"))
	require.NoError(t, s.Add("b"))
	require.True(t, s.IsFull())
	require.Error(t, s.Add("c"))
}

func TestEachSkipsFreeSlotsInOrder(t *testing.T) {
	s := newTestSet(4, 16, false)
	require.NoError(t, s.Add("a"))
	require.NoError(t, s.Add("b"))
	require.NoError(t, s.Add("c"))
	require.True(t, s.Remove("b"))

	var seen []string
	s.Each(func(str string) bool {
		seen = append(seen, str)
		return true
	})
	require.Equal(t, []string{"a", "c"}, seen)
}

func TestClearResetsCountButNotCapacity(t *testing.T) {
	s := newTestSet(3, 16, false)
	require.NoError(t, s.Add("a"))
	s.Clear()
	require.True(t, s.IsEmpty())
	require.Equal(t, 3, s.Cap())
}

func TestNewPanicsOnSlotUsedLengthMismatch(t *testing.T) {
	require.Panics(t, func() {
		New(make([]string, 4), make([]bool, 3), 16, false)
	})
}
