// Package strings provides string collection utilities.
package strings

import (
	"strings"
)

// Duplicates returns every value that occurs more than once, in order of its
// second occurrence. With fold set, values are compared case-insensitively
// and the returned value is the spelling of the first occurrence.
//
// Example:
//
//	Duplicates([]string{"a", "b", "A", "a"}, false)
//	// Returns: []string{"a"}
//	Duplicates([]string{"a", "b", "A", "a"}, true)
//	// Returns: []string{"a"}
func Duplicates(values []string, fold bool) []string {
	if len(values) < 2 {
		return nil
	}

	first := make(map[string]string, len(values))
	reported := make(map[string]struct{})
	var result []string

	for _, v := range values {
		key := v
		if fold {
			key = strings.ToLower(v)
		}
		original, seen := first[key]
		if !seen {
			first[key] = v
			continue
		}
		if _, done := reported[key]; done {
			continue
		}
		reported[key] = struct{}{}
		result = append(result, original)
	}

	return result
}

// HasDuplicates reports whether any value occurs more than once.
func HasDuplicates(values []string, fold bool) bool {
	return len(Duplicates(values, fold)) > 0
}

// Count returns how many values equal target, case-insensitively when fold is set.
func Count(values []string, target string, fold bool) int {
	n := 0
	for _, v := range values {
		if v == target || (fold && strings.EqualFold(v, target)) {
			n++
		}
	}
	return n
}
