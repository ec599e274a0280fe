// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// NormalizeIDs trims and lowercases each identifier, dropping blanks and
// repeats while keeping first-seen order.
//
//	NormalizeIDs([]string{" A1 ", "a1", "", "b2"}) // []string{"a1", "b2"}
func NormalizeIDs(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
