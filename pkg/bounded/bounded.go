// Package bounded holds the fixed-capacity value helpers used by every feed record.
//
// A capacity follows the device convention of a C character buffer: a capacity of
// M holds at most M-1 bytes of text. Values that do not fit are truncated, and
// lists that are full drop new elements. Neither case is an error.
package bounded

import "unicode/utf8"

// Truncate returns s cut to fit a buffer of the given capacity.
// The result never splits a UTF-8 sequence.
func Truncate(s string, capacity int) string {
	if capacity <= 1 {
		return ""
	}

	limit := capacity - 1
	if len(s) <= limit {
		return s
	}

	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}

	return s[:limit]
}

// Set stores v into dst truncated to capacity.
func Set(dst *string, v string, capacity int) {
	*dst = Truncate(v, capacity)
}

// Append concatenates v onto dst, truncating the combined value to capacity.
func Append(dst *string, v string, capacity int) {
	*dst = Truncate(*dst+v, capacity)
}
