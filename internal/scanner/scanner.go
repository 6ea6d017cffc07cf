// Package scanner handles directory scanning for unprefix.
package scanner

import (
	"os"
	"path/filepath"
	"sort"

	"gitlab.com/tozd/go/errors"
)

// ScanErrorType represents the type of scanning error.
type ScanErrorType string

const (
	// DirectoryNotFound indicates the directory does not exist or is not a directory.
	DirectoryNotFound ScanErrorType = "DIRECTORY_NOT_FOUND"
	// PermissionDenied indicates insufficient permissions to read the directory.
	PermissionDenied ScanErrorType = "PERMISSION_DENIED"
	// SymlinkError indicates a symlink was encountered with "error" policy.
	SymlinkError ScanErrorType = "SYMLINK_ERROR"
)

// Symlink policy constants
const (
	SymlinkPolicyFollow = "follow"
	SymlinkPolicySkip   = "skip"
	SymlinkPolicyError  = "error"
)

// ErrNotRegularFile is returned by Lookup for entries that are not regular files.
var ErrNotRegularFile = errors.Base("not a regular file")

// ScanError represents an error that occurred during directory scanning.
type ScanError struct {
	Type ScanErrorType
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return string(e.Type) + ": " + e.Path
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ScanOptions configures scanning behavior.
type ScanOptions struct {
	SymlinkPolicy string // "follow", "skip", or "error"
}

// DefaultScanOptions returns the default scan options.
// Symlinks are followed so that links to regular files are treated as files.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		SymlinkPolicy: SymlinkPolicyFollow,
	}
}

// FileEntry represents a file found during scanning.
type FileEntry struct {
	Name     string // Filename only
	FullPath string // Absolute path
}

// Scan enumerates regular files directly inside directory, sorted by name.
// Subdirectories are excluded and never descended into.
func Scan(directory string) ([]FileEntry, error) {
	return ScanWithOptions(directory, DefaultScanOptions())
}

// CheckDirectory verifies that directory exists and is a directory.
func CheckDirectory(directory string) error {
	info, err := os.Stat(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return &ScanError{
				Type: DirectoryNotFound,
				Path: directory,
				Err:  err,
			}
		}
		if os.IsPermission(err) {
			return &ScanError{
				Type: PermissionDenied,
				Path: directory,
				Err:  err,
			}
		}
		return err
	}

	if !info.IsDir() {
		return &ScanError{
			Type: DirectoryNotFound,
			Path: directory,
			Err:  errors.New("path is not a directory"),
		}
	}
	return nil
}

// ScanWithOptions scans directory with configurable options.
func ScanWithOptions(directory string, opts ScanOptions) ([]FileEntry, error) {
	if err := CheckDirectory(directory); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &ScanError{
				Type: PermissionDenied,
				Path: directory,
				Err:  err,
			}
		}
		return nil, err
	}

	files := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		file, err := lookup(directory, entry.Name(), opts)
		if err != nil {
			var scanErr *ScanError
			if errors.As(err, &scanErr) && scanErr.Type == SymlinkError {
				return nil, err
			}
			continue // Skip directories and entries we can't stat
		}
		files = append(files, *file)
	}

	// os.ReadDir already sorts, but the order is part of our contract
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// Lookup returns the FileEntry for a single name inside directory.
// It returns ErrNotRegularFile for directories and other non-regular entries.
func Lookup(directory, name string, opts ScanOptions) (*FileEntry, error) {
	return lookup(directory, name, opts)
}

func lookup(directory, name string, opts ScanOptions) (*FileEntry, error) {
	fullPath := filepath.Join(directory, name)
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		absPath = fullPath
	}

	info, err := os.Lstat(fullPath)
	if err != nil {
		return nil, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		switch opts.SymlinkPolicy {
		case SymlinkPolicyError:
			return nil, &ScanError{
				Type: SymlinkError,
				Path: fullPath,
				Err:  errors.New("symlink encountered with error policy"),
			}
		case SymlinkPolicySkip:
			return nil, ErrNotRegularFile
		default:
			// Follow the symlink to get the target info
			info, err = os.Stat(fullPath)
			if err != nil {
				return nil, err // Broken symlink
			}
		}
	}

	if !info.Mode().IsRegular() {
		return nil, ErrNotRegularFile
	}

	return &FileEntry{
		Name:     name,
		FullPath: absPath,
	}, nil
}
