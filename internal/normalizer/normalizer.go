// Package normalizer computes the transformed filename for unprefix.
package normalizer

import (
	"unprefix/internal/matcher"
)

// Normalize returns filename with its numeric "NN - " prefix removed.
// Filenames without a prefix are returned unchanged. A filename consisting
// only of a prefix yields the empty string; callers decide whether that is valid.
func Normalize(filename string) string {
	return matcher.Match(filename).Remainder
}

// Changed reports whether Normalize would produce a different name.
func Changed(filename string) bool {
	return matcher.HasPrefix(filename)
}
