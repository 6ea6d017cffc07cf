package watcher

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnorePatterns returns the patterns for partially written files.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.part",
		"*.download",
		"*.crdownload", // Chrome partial downloads
		"*.partial",
		".~*", // e.g. .~lock files
	}
}

// FileFilter decides which filenames watch mode leaves alone.
type FileFilter struct {
	patterns []string
}

// NewFileFilter creates a FileFilter. Nil or empty patterns mean the defaults.
func NewFileFilter(patterns []string) *FileFilter {
	if len(patterns) == 0 {
		patterns = DefaultIgnorePatterns()
	}
	return &FileFilter{
		patterns: append([]string(nil), patterns...),
	}
}

// ShouldIgnore reports whether the base name of path matches an ignore pattern.
// Patterns use doublestar syntax. A bare extension such as ".bak" matches
// case-insensitively as a suffix.
func (f *FileFilter) ShouldIgnore(path string) bool {
	filename := filepath.Base(path)

	for _, pattern := range f.patterns {
		if matched, err := doublestar.Match(pattern, filename); err == nil && matched {
			return true
		}

		if strings.HasPrefix(pattern, ".") && !strings.ContainsAny(pattern, "*?[{") {
			if strings.HasSuffix(strings.ToLower(filename), strings.ToLower(pattern)) {
				return true
			}
		}
	}
	return false
}

// Patterns returns a copy of the ignore patterns.
func (f *FileFilter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}
