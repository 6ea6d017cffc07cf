// Package organizer performs the file operations for unprefix.
package organizer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"unprefix/internal/scanner"
)

// MoveErrorType represents the type of move error.
type MoveErrorType string

const (
	// SourceNotFound indicates the source file does not exist.
	SourceNotFound MoveErrorType = "SOURCE_NOT_FOUND"
	// DestinationExists indicates a file already exists at the rename target.
	DestinationExists MoveErrorType = "DESTINATION_EXISTS"
	// DestinationCollision indicates another file in the same run already claimed the target name.
	DestinationCollision MoveErrorType = "DESTINATION_COLLISION"
	// PermissionDenied indicates insufficient permissions for the operation.
	PermissionDenied MoveErrorType = "PERMISSION_DENIED"
	// InvalidName indicates the transformed name cannot be used as a filename.
	InvalidName MoveErrorType = "INVALID_NAME"
)

// ErrSameFile is returned by Copy when source and target are one file.
var ErrSameFile = errors.Base("source and destination are the same file")

// MoveError represents an error that occurred during a rename or copy.
type MoveError struct {
	Type MoveErrorType
	Path string
	Err  error
}

func (e *MoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Path)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// MoveResult represents the result of a successful rename or copy.
type MoveResult struct {
	SourcePath      string
	DestinationPath string
	Copied          bool // True for a copy, false for an in-place rename
}

// ValidateName rejects transformed names that cannot name a file in a directory.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.New("empty filename")
	case name == "." || name == "..":
		return errors.Errorf("reserved filename %q", name)
	case strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator):
		return errors.Errorf("filename %q contains a path separator", name)
	}
	return nil
}

// Rename renames file to newName within its own directory.
// It refuses to replace an existing entry at the target path.
func Rename(file scanner.FileEntry, newName string) (*MoveResult, error) {
	if err := ValidateName(newName); err != nil {
		return nil, &MoveError{Type: InvalidName, Path: file.FullPath, Err: err}
	}

	destPath := filepath.Join(filepath.Dir(file.FullPath), newName)

	if _, err := os.Lstat(file.FullPath); err != nil {
		return nil, classify(err, file.FullPath)
	}

	// os.Rename silently replaces the target on POSIX systems
	if _, err := os.Lstat(destPath); err == nil {
		return nil, &MoveError{
			Type: DestinationExists,
			Path: destPath,
			Err:  os.ErrExist,
		}
	}

	if err := os.Rename(file.FullPath, destPath); err != nil {
		return nil, classify(err, file.FullPath)
	}

	return &MoveResult{
		SourcePath:      file.FullPath,
		DestinationPath: destPath,
	}, nil
}

// Copy copies file into destDir under newName, carrying over the permission
// bits and modification time. An existing file at the target is overwritten,
// unless it is the source itself.
func Copy(file scanner.FileEntry, destDir, newName string) (*MoveResult, error) {
	if err := ValidateName(newName); err != nil {
		return nil, &MoveError{Type: InvalidName, Path: file.FullPath, Err: err}
	}

	destPath := filepath.Join(destDir, newName)

	if err := copyFile(file.FullPath, destPath); err != nil {
		return nil, err
	}

	return &MoveResult{
		SourcePath:      file.FullPath,
		DestinationPath: destPath,
		Copied:          true,
	}, nil
}

// copyFile streams src to dst and then applies the source mode and mtime.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return classify(err, src)
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return classify(err, src)
	}
	if !srcInfo.Mode().IsRegular() {
		return &MoveError{Type: SourceNotFound, Path: src, Err: errors.New("not a regular file")}
	}

	// Truncating dst would destroy src when both name the same file,
	// e.g. through a symlink in the input directory
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(srcInfo, dstInfo) {
		return &MoveError{Type: DestinationExists, Path: dst, Err: ErrSameFile}
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return classify(err, dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Errorf("copying %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("closing %s: %w", dst, err)
	}

	// OpenFile only applies the mode on create and is subject to umask
	if err := os.Chmod(dst, srcInfo.Mode().Perm()); err != nil {
		return classify(err, dst)
	}

	// A zero access time leaves it unchanged
	if err := os.Chtimes(dst, time.Time{}, srcInfo.ModTime()); err != nil {
		return classify(err, dst)
	}

	return nil
}

// classify converts a file system error into a MoveError where the cause is known.
func classify(err error, path string) error {
	switch {
	case os.IsNotExist(err):
		return &MoveError{Type: SourceNotFound, Path: path, Err: err}
	case os.IsPermission(err):
		return &MoveError{Type: PermissionDenied, Path: path, Err: err}
	case os.IsExist(err):
		return &MoveError{Type: DestinationExists, Path: path, Err: err}
	}
	return err
}
