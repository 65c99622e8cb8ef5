// SPDX-License-Identifier: MPL-2.0

package library

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// escapeReplacer resolves the separators accepted in declarations. Dots cannot be
// used in some declaration keys, so '#' and '/' stand in for them.
var escapeReplacer = strings.NewReplacer("#", ".", "/", ".")

// Relocation is a namespace rewrite rule: every symbol under Pattern is moved
// under Replacement. Both fields are fully-qualified dotted namespaces.
//
// Relocation is a comparable value; two rules are equal iff both fields match.
type Relocation struct {
	// Pattern is the namespace to match (e.g., "com.github.benmanes.caffeine").
	Pattern string
	// Replacement is the namespace prefix that replaces Pattern
	// (e.g., "org.example.libs.caffeine").
	Replacement string
}

// NewRelocation creates a relocation rule, resolving '#' and '/' in either
// side to '.'.
func NewRelocation(pattern, replacement string) Relocation {
	return Relocation{
		Pattern:     escapeReplacer.Replace(pattern),
		Replacement: escapeReplacer.Replace(replacement),
	}
}

// String returns a human-readable representation of the rule.
func (r Relocation) String() string {
	return fmt.Sprintf("%s -> %s", r.Pattern, r.Replacement)
}

// compareRelocations orders rules by pattern, then replacement.
func compareRelocations(a, b Relocation) int {
	if c := cmp.Compare(a.Pattern, b.Pattern); c != 0 {
		return c
	}
	return cmp.Compare(a.Replacement, b.Replacement)
}

// normalizeRelocations returns a sorted copy of rules with duplicates removed.
func normalizeRelocations(rules []Relocation) []Relocation {
	if len(rules) == 0 {
		return nil
	}
	out := slices.Clone(rules)
	slices.SortFunc(out, compareRelocations)
	return slices.Compact(out)
}
