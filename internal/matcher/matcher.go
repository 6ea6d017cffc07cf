// Package matcher handles numeric filename prefix matching for unprefix.
package matcher

import (
	"regexp"
)

// Separator is the literal text that must follow the digit run.
const Separator = " - "

// prefixPattern matches one or more decimal digits followed by the separator,
// anchored at the start of the filename. Any Unicode decimal digit counts,
// so "١٢ - " and fullwidth "０１ - " are prefixes too.
var prefixPattern = regexp.MustCompile(`^(\p{Nd}+) - `)

// MatchResult represents the result of matching a filename against the prefix pattern.
type MatchResult struct {
	Matched   bool
	Prefix    string // The full matched span, e.g. "01 - "
	Number    string // The digit run as it appears in the filename, e.g. "01"
	Remainder string // Everything after the prefix
}

// Match evaluates a filename against the numeric prefix pattern.
// Only a prefix starting at position 0 is recognized; digits appearing
// elsewhere in the name never match.
func Match(filename string) *MatchResult {
	loc := prefixPattern.FindStringSubmatchIndex(filename)
	if loc == nil {
		return &MatchResult{Matched: false, Remainder: filename}
	}

	return &MatchResult{
		Matched:   true,
		Prefix:    filename[:loc[1]],
		Number:    filename[loc[2]:loc[3]],
		Remainder: filename[loc[1]:],
	}
}

// HasPrefix reports whether filename starts with a numeric prefix.
func HasPrefix(filename string) bool {
	return prefixPattern.MatchString(filename)
}
