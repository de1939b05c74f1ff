// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// ListSeparator joins string lists that are stored as a single column.
const ListSeparator = ", "

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved and comparison is
// case-sensitive.
//
// Example:
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
//	// Returns: []string{"foo", "bar"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// MergeUnique appends the values of each list in turn, keeping only the first
// occurrence of every trimmed, non-empty value.
//
// Example:
//
//	MergeUnique([]string{"a@x.com"}, []string{"b@x.com", "a@x.com"})
//	// Returns: []string{"a@x.com", "b@x.com"}
func MergeUnique(lists ...[]string) []string {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	merged := make([]string, 0, total)
	for _, l := range lists {
		merged = append(merged, l...)
	}
	return DedupeAndTrim(merged)
}

// JoinList renders a list as a single ListSeparator-joined string. Empty lists
// yield nil so the value can be stored as SQL NULL or JSON null.
func JoinList(values []string) *string {
	values = DedupeAndTrim(values)
	if len(values) == 0 {
		return nil
	}
	joined := strings.Join(values, ListSeparator)
	return &joined
}

// SplitList is the inverse of JoinList. It accepts any comma-separated form.
func SplitList(value *string) []string {
	if value == nil {
		return []string{}
	}
	out := DedupeAndTrim(strings.Split(*value, ","))
	if out == nil {
		return []string{}
	}
	return out
}
