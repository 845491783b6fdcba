package luaplugin

import (
	"strings"

	"github.com/sled-run/sleddbg/pkg/luahost"
)

// VarScope identifies which enumeration a filter applies to (spec §4.11).
type VarScope byte

const (
	ScopeGlobal   VarScope = 'g'
	ScopeLocal    VarScope = 'l'
	ScopeUpvalue  VarScope = 'u'
	ScopeEnv      VarScope = 'e'
)

// namePattern is a '*'-split pattern with anchoring flags recorded for the
// leading/trailing wildcard (spec §4.11).
type namePattern struct {
	scope            VarScope
	segments         []string
	unanchoredStart  bool
	unanchoredEnd    bool
}

func compilePattern(scope VarScope, pattern string) namePattern {
	p := namePattern{scope: scope}
	p.unanchoredStart = strings.HasPrefix(pattern, "*")
	p.unanchoredEnd = strings.HasSuffix(pattern, "*")
	trimmed := strings.Trim(pattern, "*")
	if trimmed == "" {
		p.segments = nil
	} else {
		p.segments = strings.Split(trimmed, "*")
	}
	return p
}

// matches implements spec §4.11's segment walk: iterate segments
// left-to-right over name by substring search, enforcing anchoring at the
// ends unless the corresponding wildcard flag is set.
func (p namePattern) matches(name string) bool {
	if len(p.segments) == 0 {
		// A bare "*" matches everything; an empty pattern matches nothing.
		return p.unanchoredStart || p.unanchoredEnd
	}
	cursor := 0
	for i, seg := range p.segments {
		idx := strings.Index(name[cursor:], seg)
		if idx < 0 {
			return false
		}
		abs := cursor + idx
		if i == 0 && !p.unanchoredStart && abs != 0 {
			return false
		}
		cursor = abs + len(seg)
		if i == len(p.segments)-1 && !p.unanchoredEnd && cursor != len(name) {
			return false
		}
	}
	return true
}

// filterSet is the plugin's fixed-capacity collection of name-pattern and
// type-mask filters (spec §4.11). patterns is typically arena-backed
// (spec §9); addPattern never grows it past cap.
type filterSet struct {
	maxPatternLen     int
	maxPatternsPerVar int

	patterns []namePattern
	typeMask [4]uint16 // indexed by VarScope-derived index, 9-bit interpreter type mask
}

func newFilterSet(cfg Config, patterns []namePattern) *filterSet {
	return &filterSet{
		maxPatternLen:     cfg.MaxVarFilterPatternLen,
		maxPatternsPerVar: cfg.MaxPatternsPerVarFilter,
		patterns:          patterns[:0],
	}
}

func scopeIndex(s VarScope) int {
	switch s {
	case ScopeGlobal:
		return 0
	case ScopeLocal:
		return 1
	case ScopeUpvalue:
		return 2
	case ScopeEnv:
		return 3
	default:
		return 0
	}
}

func (fs *filterSet) addPattern(scope VarScope, pattern string) bool {
	if len(fs.patterns) >= cap(fs.patterns) || len(pattern) > fs.maxPatternLen {
		return false
	}
	fs.patterns = append(fs.patterns, compilePattern(scope, pattern))
	return true
}

func (fs *filterSet) setTypeMask(scope VarScope, mask uint16) {
	fs.typeMask[scopeIndex(scope)] = mask
}

func (fs *filterSet) clear() {
	fs.patterns = fs.patterns[:0]
	fs.typeMask = [4]uint16{}
}

// isFiltered reports whether name/valueType should be excluded from
// enumeration for scope (spec §4.11: "filtered-out if any scope-matching
// filter matches or the type mask's bit is set").
func (fs *filterSet) isFiltered(scope VarScope, name string, valueType luahost.ValueType) bool {
	if fs.typeMask[scopeIndex(scope)]&(1<<uint(valueType)) != 0 {
		return true
	}
	for _, p := range fs.patterns {
		if p.scope == scope && p.matches(name) {
			return true
		}
	}
	return false
}
