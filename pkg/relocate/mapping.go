// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"cmp"
	"slices"
	"strings"

	"github.com/invowk/pluginlib/pkg/library"
)

// Mapping is a compiled set of relocation rules.
//
// Rewrite matches a pattern only as a whole leading namespace of a name, in
// dotted form (com.google.gson.Gson), internal form (com/google/gson/Gson) or
// inside a type descriptor (Lcom/google/gson/Gson;). When patterns overlap,
// the longest one wins.
type Mapping struct {
	rules []library.Relocation
}

// NewMapping compiles rules. Rules with an empty pattern are ignored.
func NewMapping(rules []library.Relocation) Mapping {
	compiled := make([]library.Relocation, 0, len(rules))
	for _, r := range rules {
		if r.Pattern != "" {
			compiled = append(compiled, r)
		}
	}
	slices.SortStableFunc(compiled, func(a, b library.Relocation) int {
		return cmp.Compare(len(b.Pattern), len(a.Pattern))
	})
	return Mapping{rules: compiled}
}

// Len returns the number of rules.
func (m Mapping) Len() int { return len(m.rules) }

// Rules returns the rules, longest pattern first.
func (m Mapping) Rules() []library.Relocation { return slices.Clone(m.rules) }

// Rewrite returns s with every relocated namespace replaced.
func (m Mapping) Rewrite(s string) string {
	if len(m.rules) == 0 || s == "" {
		return s
	}

	var sb strings.Builder
	last := 0
	for i := 0; i < len(s); {
		if startsName(s, i) {
			if repl, n, ok := m.matchAt(s, i); ok {
				sb.WriteString(s[last:i])
				sb.WriteString(repl)
				i += n
				last = i
				continue
			}
		}
		i++
	}
	if last == 0 {
		return s
	}
	sb.WriteString(s[last:])
	return sb.String()
}

// matchAt returns the replacement for the longest pattern matching s at i.
func (m Mapping) matchAt(s string, i int) (string, int, bool) {
	rest := s[i:]
	for _, r := range m.rules {
		for _, sep := range []byte{'.', '/'} {
			p := withSeparator(r.Pattern, sep)
			if !strings.HasPrefix(rest, p) || !endsName(rest, len(p), sep) {
				continue
			}
			return withSeparator(r.Replacement, sep), len(p), true
		}
	}
	return "", 0, false
}

func withSeparator(name string, sep byte) string {
	if sep == '.' {
		return name
	}
	return strings.ReplaceAll(name, ".", string(sep))
}

// startsName reports whether a qualified name can start at s[i]: at the start
// of s, after a non-name byte, or after the 'L' of a type descriptor. The 'L'
// may follow a run of primitive codes and array brackets, as in (IJ[Lfoo;)V.
func startsName(s string, i int) bool {
	if i == 0 || !isNameByte(s[i-1]) {
		return true
	}
	if s[i-1] != 'L' {
		return false
	}
	j := i - 2
	for j >= 0 && strings.IndexByte("BCDFIJSZ[", s[j]) >= 0 {
		j--
	}
	return j < 0 || !isNameByte(s[j])
}

// endsName reports whether the match of length n ends a namespace segment.
func endsName(s string, n int, sep byte) bool {
	if n == len(s) {
		return true
	}
	c := s[n]
	return c == sep || c == '$' || !isNameByte(c)
}

func isNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '$', c == '.', c == '/', c == '-':
		return true
	default:
		return c >= 0x80
	}
}
