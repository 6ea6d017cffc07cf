package organizer

import (
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// Canonical returns the absolute, symlink-resolved form of path.
// The path must exist.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Errorf("resolving %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.Errorf("resolving %s: %w", path, err)
	}
	return resolved, nil
}

// SameLocation reports whether two existing directories resolve to the same canonical path.
func SameLocation(a, b string) (bool, error) {
	ca, err := Canonical(a)
	if err != nil {
		return false, err
	}
	cb, err := Canonical(b)
	if err != nil {
		return false, err
	}
	return ca == cb, nil
}
