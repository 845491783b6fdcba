package luaplugin

import (
	"testing"

	"github.com/sled-run/sleddbg/pkg/luahost"
	"github.com/stretchr/testify/require"
)

func TestNamePatternAnchoring(t *testing.T) {
	cases := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"foo", "foo", true},
		{"foo", "foobar", false},
		{"foo*", "foobar", true},
		{"*bar", "foobar", true},
		{"*bar", "barfoo", false},
		{"*mid*", "xxmidyy", true},
		{"*mid*", "midyy", true},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "acb", false},
	}
	for _, c := range cases {
		p := compilePattern(ScopeGlobal, c.pattern)
		require.Equal(t, c.want, p.matches(c.name), "pattern=%q name=%q", c.pattern, c.name)
	}
}

func newTestFilterSet(cfg Config) *filterSet {
	return newFilterSet(cfg, make([]namePattern, 0, cfg.MaxNumVarFilters))
}

func TestFilterSetTypeMaskExcludesType(t *testing.T) {
	fs := newTestFilterSet(Config{MaxNumVarFilters: 4, MaxVarFilterPatternLen: 16})
	fs.setTypeMask(ScopeGlobal, 1<<uint(luahost.TypeFunction))
	require.True(t, fs.isFiltered(ScopeGlobal, "anything", luahost.TypeFunction))
	require.False(t, fs.isFiltered(ScopeGlobal, "anything", luahost.TypeNumber))
}

func TestFilterSetPatternScoped(t *testing.T) {
	fs := newTestFilterSet(Config{MaxNumVarFilters: 4, MaxVarFilterPatternLen: 16})
	require.True(t, fs.addPattern(ScopeLocal, "temp*"))
	require.True(t, fs.isFiltered(ScopeLocal, "temp_x", luahost.TypeNumber))
	require.False(t, fs.isFiltered(ScopeGlobal, "temp_x", luahost.TypeNumber))
}

func TestFilterSetRejectsOverCapacity(t *testing.T) {
	fs := newTestFilterSet(Config{MaxNumVarFilters: 1, MaxVarFilterPatternLen: 16})
	require.True(t, fs.addPattern(ScopeGlobal, "a*"))
	require.False(t, fs.addPattern(ScopeGlobal, "b*"))
}
